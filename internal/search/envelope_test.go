package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope_ModernTotalShape(t *testing.T) {
	raw := []byte(`{
		"took": 12,
		"hits": {
			"total": {"value": 42, "relation": "eq"},
			"hits": [
				{"_id": "a1", "_source": {"level": "ERROR", "message": "boom"}},
				{"_id": "a2", "_source": {"level": "INFO", "message": "ok"}}
			]
		},
		"aggregations": {"levels": {"buckets": [{"key": "ERROR", "doc_count": 7}]}}
	}`)

	env, err := decodeEnvelope(200, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), env.Total)
	assert.Equal(t, int64(12), env.TookMs)
	require.Len(t, env.Documents, 2)
	assert.Equal(t, "boom", env.Documents[0]["message"])
	assert.Contains(t, env.Aggregations, "levels")
}

func TestDecodeEnvelope_LegacyNumericTotal(t *testing.T) {
	raw := []byte(`{"hits": {"total": 3, "hits": []}}`)

	env, err := decodeEnvelope(200, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(3), env.Total)
	assert.Empty(t, env.Documents)
}

func TestDecodeEnvelope_EngineError(t *testing.T) {
	raw := []byte(`{"error": {"type": "search_phase_execution_exception", "reason": "No mapping found for [levle] in order to sort on"}, "status": 400}`)

	_, err := decodeEnvelope(400, raw)
	require.Error(t, err)

	ge, ok := err.(*GatewayError)
	require.True(t, ok)
	assert.Equal(t, 400, ge.StatusCode)
	assert.Equal(t, "search_phase_execution_exception", ge.ErrType)
	assert.Contains(t, ge.Reason, "No mapping found")
}

func TestDecodeEnvelope_ErrorStatusWithoutErrorKey(t *testing.T) {
	raw := []byte(`{"message": "index_not_found"}`)

	_, err := decodeEnvelope(404, raw)
	require.Error(t, err)

	ge, ok := err.(*GatewayError)
	require.True(t, ok)
	assert.Equal(t, 404, ge.StatusCode)
}

func TestDecodeEnvelope_UnparseableBody(t *testing.T) {
	_, err := decodeEnvelope(200, []byte("<html>gateway timeout</html>"))
	require.Error(t, err)

	ge, ok := err.(*GatewayError)
	require.True(t, ok)
	assert.Equal(t, "decode_error", ge.ErrType)
}

func TestDecodeEnvelope_SkipsHitsWithoutSource(t *testing.T) {
	raw := []byte(`{"hits": {"total": {"value": 2}, "hits": [
		{"_id": "a1"},
		{"_id": "a2", "_source": {"message": "kept"}}
	]}}`)

	env, err := decodeEnvelope(200, raw)
	require.NoError(t, err)
	require.Len(t, env.Documents, 1)
	assert.Equal(t, "kept", env.Documents[0]["message"])
}
