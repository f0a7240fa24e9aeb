package search

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"loginsight-backend/internal/model"
)

// System fields and search-engine bookkeeping that never help the summarizer.
var excludedDocFields = map[string]bool{
	"_id": true, "_index": true, "_type": true, "_score": true, "_version": true,
	"_seq_no": true, "_primary_term": true, "_routing": true, "_parent": true,
	"_timestamp": true, "_ttl": true, "_size": true, "_uid": true, "_all": true,
	"sort": true, "highlight": true, "matched_queries": true, "inner_hits": true,
	"_shards": true, "_explanation": true, "_nested": true, "_ignored": true,
}

// Common log fields, in the order they should lead each cleaned document.
var priorityDocFields = []string{
	"timestamp", "time", "@timestamp", "datetime", "date", "created_at", "updated_at",
	"level", "severity", "priority", "status", "code", "response_code", "status_code",
	"message", "msg", "content", "text", "description", "summary",
	"source", "host", "hostname", "ip", "client_ip", "remote_addr", "server_name",
	"method", "url", "path", "endpoint", "api", "uri", "request_uri",
	"user", "username", "user_id", "account", "client_id",
	"error", "exception", "stack_trace", "error_message", "error_code",
	"duration", "response_time", "latency", "size", "bytes",
}

var importantNestedKeys = []string{"message", "error", "status", "code", "name", "type", "value", "host", "port"}

var errorTextMarkers = []string{"error", "exception", "failed", "timeout"}

const (
	maxOtherDocFields  = 10
	maxNestedDictKeys  = 5
	maxNestedListItems = 3
	maxAggBuckets      = 10
	errorTextLimit     = 200
	plainTextLimit     = 150
)

// CleanEnvelope produces the bounded, prompt-friendly view of an accepted
// result: system fields dropped, long values truncated, nested fan-out
// capped, aggregation buckets trimmed.
func CleanEnvelope(env *model.ResultEnvelope) *model.ResultEnvelope {
	if env == nil {
		return nil
	}

	cleaned := &model.ResultEnvelope{
		Total:  env.Total,
		TookMs: env.TookMs,
	}

	cleaned.Documents = make([]map[string]interface{}, 0, len(env.Documents))
	for _, doc := range env.Documents {
		if c := cleanDocumentFields(doc); len(c) > 0 {
			cleaned.Documents = append(cleaned.Documents, c)
		}
	}

	if len(env.Aggregations) > 0 {
		cleaned.Aggregations = simplifyAggregations(env.Aggregations)
	}

	return cleaned
}

func cleanDocumentFields(source map[string]interface{}) map[string]interface{} {
	if len(source) == 0 {
		return nil
	}

	cleaned := make(map[string]interface{})

	for _, field := range priorityDocFields {
		if value, ok := source[field]; ok && !excludedDocFields[field] {
			if simplified := simplifyFieldValue(value); simplified != nil {
				cleaned[field] = simplified
			}
		}
	}

	otherFields := 0
	for key, value := range source {
		if _, done := cleaned[key]; done {
			continue
		}
		if excludedDocFields[key] || strings.HasPrefix(key, "_") || otherFields >= maxOtherDocFields {
			continue
		}
		switch strings.ToLower(key) {
		case "raw", "keyword", "analyzed", "not_analyzed", "fields":
			continue
		}
		if simplified := simplifyFieldValue(value); simplified != nil {
			cleaned[key] = simplified
			otherFields++
		}
	}

	return cleaned
}

func simplifyFieldValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return simplifyString(v)
	case bool:
		return v
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v)
		}
		return math.Round(v*1000) / 1000
	case int:
		return v
	case int64:
		return v
	case map[string]interface{}:
		return simplifyDict(v)
	case []interface{}:
		return simplifyList(v)
	default:
		s := fmt.Sprintf("%v", v)
		if len(s) > 100 {
			s = s[:97] + "..."
		}
		return s
	}
}

func simplifyString(s string) interface{} {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return nil
	}
	if len(cleaned) <= errorTextLimit {
		return cleaned
	}

	// Long JSON-looking strings are parsed and simplified structurally
	// instead of being cut mid-token.
	if strings.HasPrefix(cleaned, "{") || strings.HasPrefix(cleaned, "[") {
		var parsed interface{}
		if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
			return simplifyFieldValue(parsed)
		}
	}

	// Error-ish text keeps more characters than ordinary text.
	lower := strings.ToLower(cleaned)
	for _, marker := range errorTextMarkers {
		if strings.Contains(lower, marker) {
			return truncateString(cleaned, errorTextLimit)
		}
	}
	return truncateString(cleaned, plainTextLimit)
}

// truncateString cuts s to at most limit bytes including the "..." marker,
// backing up to a rune boundary so multi-byte text is never split.
func truncateString(s string, limit int) string {
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func simplifyDict(value map[string]interface{}) interface{} {
	if len(value) > maxNestedDictKeys {
		simplified := make(map[string]interface{})
		for _, key := range importantNestedKeys {
			if v, ok := value[key]; ok {
				if s := simplifyFieldValue(v); s != nil {
					simplified[key] = s
				}
			}
		}
		if len(simplified) == 0 {
			taken := 0
			for k, v := range value {
				if taken >= 3 || strings.HasPrefix(k, "_") {
					continue
				}
				if s := simplifyFieldValue(v); s != nil {
					simplified[k] = s
					taken++
				}
			}
		}

		visible := 0
		for k := range value {
			if !strings.HasPrefix(k, "_") {
				visible++
			}
		}
		if remaining := visible - len(simplified); remaining > 0 {
			simplified["_more"] = fmt.Sprintf("...%d more fields", remaining)
		}
		if len(simplified) == 0 {
			return nil
		}
		return simplified
	}

	simplified := make(map[string]interface{})
	for k, v := range value {
		if strings.HasPrefix(k, "_") {
			continue
		}
		if s := simplifyFieldValue(v); s != nil {
			simplified[k] = s
		}
	}
	if len(simplified) == 0 {
		return nil
	}
	return simplified
}

func simplifyList(value []interface{}) interface{} {
	if len(value) == 0 {
		return nil
	}
	if len(value) > maxNestedListItems {
		simplified := make([]interface{}, 0, maxNestedListItems+1)
		for _, item := range value[:maxNestedListItems] {
			if s := simplifyFieldValue(item); s != nil {
				simplified = append(simplified, s)
			}
		}
		if len(simplified) == 0 {
			return fmt.Sprintf("[%d items]", len(value))
		}
		simplified = append(simplified, fmt.Sprintf("...%d more items", len(value)-maxNestedListItems))
		return simplified
	}

	simplified := make([]interface{}, 0, len(value))
	for _, item := range value {
		if s := simplifyFieldValue(item); s != nil {
			simplified = append(simplified, s)
		}
	}
	if len(simplified) == 0 {
		return nil
	}
	return simplified
}

// simplifyAggregations trims aggregation results to a reporting-friendly
// shape: bucket aggregations keep the top buckets plus the true total count,
// single-value metrics are rounded.
func simplifyAggregations(raw map[string]interface{}) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}

	simplified := make(map[string]interface{}, len(raw))
	for name, data := range raw {
		aggData, ok := data.(map[string]interface{})
		if !ok {
			simplified[name] = map[string]interface{}{"type": "complex", "data": simplifyFieldValue(data)}
			continue
		}

		if rawBuckets, ok := aggData["buckets"].([]interface{}); ok {
			total := len(rawBuckets)
			keep := rawBuckets
			if len(keep) > maxAggBuckets {
				keep = keep[:maxAggBuckets]
			}
			items := make([]map[string]interface{}, 0, len(keep))
			for _, b := range keep {
				bucket, ok := b.(map[string]interface{})
				if !ok {
					continue
				}
				item := map[string]interface{}{
					"key":   fmt.Sprintf("%v", bucket["key"]),
					"count": int64(0),
				}
				if dc, ok := bucket["doc_count"].(float64); ok {
					item["count"] = int64(dc)
				}
				items = append(items, item)
			}
			simplified[name] = map[string]interface{}{
				"type":  "buckets",
				"total": total,
				"items": items,
			}
			continue
		}

		if value, ok := aggData["value"]; ok {
			if f, isNum := value.(float64); isNum {
				simplified[name] = map[string]interface{}{"type": "metric", "value": math.Round(f*100) / 100}
			} else {
				simplified[name] = map[string]interface{}{"type": "metric", "value": value}
			}
			continue
		}

		simplified[name] = map[string]interface{}{"type": "complex", "data": simplifyFieldValue(aggData)}
	}

	return simplified
}
