package search_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginsight-backend/internal/model"
	"loginsight-backend/internal/search"
)

func TestCleanEnvelope_DropsSystemFields(t *testing.T) {
	env := &model.ResultEnvelope{
		Total: 1,
		Documents: []map[string]interface{}{
			{
				"_index":    "app-logs",
				"_version":  float64(2),
				"highlight": "should go",
				"sort":      []interface{}{float64(1)},
				"level":     "ERROR",
				"message":   "connection refused",
			},
		},
	}

	cleaned := search.CleanEnvelope(env)
	require.Len(t, cleaned.Documents, 1)
	doc := cleaned.Documents[0]
	assert.Equal(t, "ERROR", doc["level"])
	assert.Equal(t, "connection refused", doc["message"])
	assert.NotContains(t, doc, "_index")
	assert.NotContains(t, doc, "_version")
	assert.NotContains(t, doc, "highlight")
	assert.NotContains(t, doc, "sort")
}

func TestCleanEnvelope_TruncatesErrorTextLonger(t *testing.T) {
	longError := "error: " + strings.Repeat("x", 400)
	longPlain := "background job " + strings.Repeat("y", 400)

	env := &model.ResultEnvelope{
		Documents: []map[string]interface{}{
			{"message": longError, "description": longPlain},
		},
	}

	doc := search.CleanEnvelope(env).Documents[0]
	assert.Len(t, doc["message"], 200)
	assert.True(t, strings.HasSuffix(doc["message"].(string), "..."))
	assert.Len(t, doc["description"], 150)
	assert.True(t, strings.HasSuffix(doc["description"].(string), "..."))
}

func TestCleanEnvelope_TruncatesOnRuneBoundary(t *testing.T) {
	// "error " is 6 bytes, each CJK rune 3, so both cut points land inside a
	// rune and have to back up.
	cjkError := "error " + strings.Repeat("错", 120)
	cjkPlain := "ab" + strings.Repeat("日", 70)

	env := &model.ResultEnvelope{
		Documents: []map[string]interface{}{
			{"message": cjkError, "description": cjkPlain},
		},
	}

	doc := search.CleanEnvelope(env).Documents[0]
	msg := doc["message"].(string)
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, "..."))
	assert.LessOrEqual(t, len(msg), 200)

	desc := doc["description"].(string)
	assert.True(t, utf8.ValidString(desc))
	assert.True(t, strings.HasSuffix(desc, "..."))
	assert.LessOrEqual(t, len(desc), 150)
}

func TestCleanEnvelope_ShortStringsUntouched(t *testing.T) {
	env := &model.ResultEnvelope{
		Documents: []map[string]interface{}{{"message": "all good"}},
	}
	doc := search.CleanEnvelope(env).Documents[0]
	assert.Equal(t, "all good", doc["message"])
}

func TestCleanEnvelope_CapsNestedDict(t *testing.T) {
	nested := map[string]interface{}{
		"message": "inner", "alpha": "a", "beta": "b", "gamma": "c", "delta": "d", "epsilon": "e",
	}
	env := &model.ResultEnvelope{
		Documents: []map[string]interface{}{{"context": nested}},
	}

	doc := search.CleanEnvelope(env).Documents[0]
	ctxVal, ok := doc["context"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "inner", ctxVal["message"])
	more, ok := ctxVal["_more"].(string)
	require.True(t, ok)
	assert.Contains(t, more, "more fields")
}

func TestCleanEnvelope_CapsLists(t *testing.T) {
	env := &model.ResultEnvelope{
		Documents: []map[string]interface{}{
			{"tags": []interface{}{"a", "b", "c", "d", "e"}},
		},
	}

	doc := search.CleanEnvelope(env).Documents[0]
	tags, ok := doc["tags"].([]interface{})
	require.True(t, ok)
	require.Len(t, tags, 4)
	assert.Equal(t, "...2 more items", tags[3])
}

func TestCleanEnvelope_RoundsFloats(t *testing.T) {
	env := &model.ResultEnvelope{
		Documents: []map[string]interface{}{
			{"latency": 12.34567, "size": float64(1024)},
		},
	}

	doc := search.CleanEnvelope(env).Documents[0]
	assert.Equal(t, 12.346, doc["latency"])
	assert.Equal(t, int64(1024), doc["size"])
}

func TestCleanEnvelope_LimitsExtraFields(t *testing.T) {
	doc := map[string]interface{}{"level": "INFO"}
	for _, name := range []string{
		"f01", "f02", "f03", "f04", "f05", "f06", "f07", "f08", "f09", "f10", "f11", "f12",
	} {
		doc[name] = "v"
	}
	env := &model.ResultEnvelope{Documents: []map[string]interface{}{doc}}

	cleaned := search.CleanEnvelope(env).Documents[0]
	// one priority field plus at most ten extras
	assert.LessOrEqual(t, len(cleaned), 11)
	assert.Equal(t, "INFO", cleaned["level"])
}

func TestCleanEnvelope_TrimsAggregationBuckets(t *testing.T) {
	buckets := make([]interface{}, 0, 15)
	for i := 0; i < 15; i++ {
		buckets = append(buckets, map[string]interface{}{"key": "svc", "doc_count": float64(i)})
	}
	env := &model.ResultEnvelope{
		Aggregations: map[string]interface{}{
			"services": map[string]interface{}{"buckets": buckets},
			"avg_time": map[string]interface{}{"value": 12.3456},
		},
	}

	cleaned := search.CleanEnvelope(env)
	services, ok := cleaned.Aggregations["services"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "buckets", services["type"])
	assert.Equal(t, 15, services["total"])
	assert.Len(t, services["items"], 10)

	avg, ok := cleaned.Aggregations["avg_time"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "metric", avg["type"])
	assert.Equal(t, 12.35, avg["value"])
}

func TestCleanEnvelope_DropsEmptyValues(t *testing.T) {
	env := &model.ResultEnvelope{
		Documents: []map[string]interface{}{
			{"message": "   ", "empty_list": []interface{}{}, "level": "WARN"},
		},
	}

	doc := search.CleanEnvelope(env).Documents[0]
	assert.NotContains(t, doc, "message")
	assert.NotContains(t, doc, "empty_list")
	assert.Equal(t, "WARN", doc["level"])
}
