package search

import (
	"encoding/json"
	"fmt"

	"loginsight-backend/internal/model"
)

func encodeQueryBody(body map[string]interface{}) ([]byte, error) {
	if body == nil {
		return nil, fmt.Errorf("query body is empty")
	}
	return json.Marshal(body)
}

// decodeEnvelope normalizes a raw engine response into a ResultEnvelope. Both
// dialects share the hits/aggregations wire shape, so one decoder serves both.
func decodeEnvelope(status int, raw []byte) (*model.ResultEnvelope, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &GatewayError{StatusCode: status, ErrType: "decode_error", Reason: fmt.Sprintf("unparseable engine response: %v", err)}
	}

	if errVal, ok := parsed["error"]; ok {
		return nil, gatewayErrorFrom(status, errVal)
	}
	if status >= 400 {
		return nil, &GatewayError{StatusCode: status, Reason: string(raw)}
	}

	env := &model.ResultEnvelope{Documents: []map[string]interface{}{}}

	if took, ok := parsed["took"].(float64); ok {
		env.TookMs = int64(took)
	}

	hits, _ := parsed["hits"].(map[string]interface{})
	if hits != nil {
		env.Total = totalHits(hits["total"])
		if rawHits, ok := hits["hits"].([]interface{}); ok {
			for _, h := range rawHits {
				hit, ok := h.(map[string]interface{})
				if !ok {
					continue
				}
				source, ok := hit["_source"].(map[string]interface{})
				if !ok || len(source) == 0 {
					continue
				}
				env.Documents = append(env.Documents, source)
			}
		}
	}

	if aggs, ok := parsed["aggregations"].(map[string]interface{}); ok && len(aggs) > 0 {
		env.Aggregations = aggs
	}

	return env, nil
}

// totalHits handles both wire shapes of hits.total: the modern
// {"value": N, "relation": ...} object and the legacy bare number.
func totalHits(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case map[string]interface{}:
		if value, ok := t["value"].(float64); ok {
			return int64(value)
		}
	}
	return 0
}

func gatewayErrorFrom(status int, errVal interface{}) *GatewayError {
	switch e := errVal.(type) {
	case string:
		return &GatewayError{StatusCode: status, Reason: e}
	case map[string]interface{}:
		ge := &GatewayError{StatusCode: status}
		if t, ok := e["type"].(string); ok {
			ge.ErrType = t
		}
		if r, ok := e["reason"].(string); ok {
			ge.Reason = r
		}
		if ge.Reason == "" {
			if encoded, err := json.Marshal(e); err == nil {
				ge.Reason = string(encoded)
			}
		}
		return ge
	default:
		return &GatewayError{StatusCode: status, Reason: fmt.Sprintf("%v", errVal)}
	}
}
