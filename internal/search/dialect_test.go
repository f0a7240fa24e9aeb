package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loginsight-backend/internal/model"
	"loginsight-backend/internal/search"
)

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		name     string
		profile  model.ConnectionProfile
		expected search.Dialect
	}{
		{
			name:     "explicit engine type wins over host hints",
			profile:  model.ConnectionProfile{EngineType: "elasticsearch", Host: "opensearch.internal"},
			expected: search.DialectElasticsearch,
		},
		{
			name:     "explicit engine type is case insensitive",
			profile:  model.ConnectionProfile{EngineType: "OpenSearch", Host: "elastic.co"},
			expected: search.DialectOpenSearch,
		},
		{
			name:     "aws opensearch serverless host",
			profile:  model.ConnectionProfile{Host: "abc123.aoss.us-east-1.amazonaws.com"},
			expected: search.DialectOpenSearch,
		},
		{
			name:     "aws managed elasticsearch domain counts as opensearch",
			profile:  model.ConnectionProfile{Host: "search-logs.es.amazonaws.com"},
			expected: search.DialectOpenSearch,
		},
		{
			name:     "elastic cloud host",
			profile:  model.ConnectionProfile{Host: "logs.es.elastic-cloud.com"},
			expected: search.DialectElasticsearch,
		},
		{
			name:     "hostname mentioning elasticsearch",
			profile:  model.ConnectionProfile{Host: "elasticsearch-coordinator.svc"},
			expected: search.DialectElasticsearch,
		},
		{
			name:     "port 9200 implies elasticsearch",
			profile:  model.ConnectionProfile{Host: "10.0.4.12", Port: 9200},
			expected: search.DialectElasticsearch,
		},
		{
			name:     "port 9243 implies elasticsearch",
			profile:  model.ConnectionProfile{Host: "search.internal", Port: 9243},
			expected: search.DialectElasticsearch,
		},
		{
			name:     "unknown profile defaults to opensearch",
			profile:  model.ConnectionProfile{Host: "search.internal", Port: 443},
			expected: search.DialectOpenSearch,
		},
		{
			name:     "unsupported engine type falls through to heuristics",
			profile:  model.ConnectionProfile{EngineType: "solr", Host: "search.internal", Port: 9200},
			expected: search.DialectElasticsearch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, search.DetectDialect(tt.profile))
		})
	}
}
