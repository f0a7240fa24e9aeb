package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginsight-backend/internal/util"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected map[string]interface{}
		wantErr  bool
	}{
		{
			name:     "Pure JSON",
			raw:      `{"a": 1}`,
			expected: map[string]interface{}{"a": float64(1)},
		},
		{
			name:     "JSON Wrapped In Prose",
			raw:      "Here is the result:\n{\"selected_index\": \"waf-logs\"}\nHope that helps.",
			expected: map[string]interface{}{"selected_index": "waf-logs"},
		},
		{
			name:     "Markdown Fence",
			raw:      "```json\n{\"ok\": true}\n```",
			expected: map[string]interface{}{"ok": true},
		},
		{
			name:     "Line Comments",
			raw:      "{\"limit\": 5 // top five\n}",
			expected: map[string]interface{}{"limit": float64(5)},
		},
		{
			name:     "Block Comments",
			raw:      `{"mode": /* chosen mode */ "bar"}`,
			expected: map[string]interface{}{"mode": "bar"},
		},
		{
			name:     "Trailing Comma In Object",
			raw:      `{"a": 1, "b": 2,}`,
			expected: map[string]interface{}{"a": float64(1), "b": float64(2)},
		},
		{
			name:     "Trailing Comma In Array",
			raw:      `{"xs": [1, 2, 3,]}`,
			expected: map[string]interface{}{"xs": []interface{}{float64(1), float64(2), float64(3)}},
		},
		{
			name:     "Single Quoted Keys And Values",
			raw:      `{'chart_type': 'pie'}`,
			expected: map[string]interface{}{"chart_type": "pie"},
		},
		{
			name:     "Control Characters",
			raw:      "{\"msg\": \"ok\x01\x02\"}",
			expected: map[string]interface{}{"msg": "ok"},
		},
		{
			name:    "No Braces At All",
			raw:     "I could not produce a query.",
			wantErr: true,
		},
		{
			name:    "Unbalanced Garbage",
			raw:     "{this is not json",
			wantErr: true,
		},
		{
			name:    "Empty Input",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := util.ExtractJSONObject(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFirstInt(t *testing.T) {
	n, ok := util.FirstInt("the best match is 2.")
	require.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = util.FirstInt("0")
	require.True(t, ok)
	assert.Equal(t, 0, n)

	_, ok = util.FirstInt("no number here")
	assert.False(t, ok)
}
