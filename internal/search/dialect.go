package search

import (
	"strings"

	"github.com/rs/zerolog/log"

	"loginsight-backend/internal/model"
)

// Dialect selects which engine client speaks to a connection profile.
type Dialect string

const (
	DialectOpenSearch    Dialect = "opensearch"
	DialectElasticsearch Dialect = "elasticsearch"
)

var opensearchHostHints = []string{"opensearch", "aoss", "es.amazonaws.com"}

var elasticsearchHostHints = []string{"elasticsearch", "elastic.co", "es.elastic-cloud.com"}

// DetectDialect picks the engine dialect for a profile. An explicit
// engine_type wins; otherwise hostname hints, then well-known Elasticsearch
// ports. Unrecognizable profiles fall back to OpenSearch.
func DetectDialect(profile model.ConnectionProfile) Dialect {
	switch strings.ToLower(profile.EngineType) {
	case string(DialectOpenSearch):
		return DialectOpenSearch
	case string(DialectElasticsearch):
		return DialectElasticsearch
	}

	host := strings.ToLower(profile.Host)
	for _, hint := range opensearchHostHints {
		if strings.Contains(host, hint) {
			return DialectOpenSearch
		}
	}
	for _, hint := range elasticsearchHostHints {
		if strings.Contains(host, hint) {
			return DialectElasticsearch
		}
	}

	if profile.Port == 9200 || profile.Port == 9243 {
		return DialectElasticsearch
	}

	log.Warn().Str("profile", profile.Name).Str("host", profile.Host).Msg("Could not determine search engine dialect, defaulting to opensearch")
	return DialectOpenSearch
}
