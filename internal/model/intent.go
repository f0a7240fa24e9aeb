package model

import (
	"strings"
	"time"
)

type IntentCategory string

const (
	CategoryLogQuery  IntentCategory = "log_query"
	CategoryDocsQuery IntentCategory = "docs_query"
	CategoryGeneral   IntentCategory = "general"
)

// TimeRange is present on an Intent only when the user named a time window,
// either in the current query or inherited from conversation context.
type TimeRange struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Explicit bool      `json:"explicit"`
}

type Entities struct {
	LogType           string   `json:"log_type,omitempty"`
	Service           string   `json:"service,omitempty"`
	Keywords          []string `json:"keywords"`
	ErrorCodes        []string `json:"error_codes"`
	ExplicitLogSource bool     `json:"explicit_log_source"`
}

// Intent is the structured reading of one user turn. It is immutable once
// produced by the analyzer.
type Intent struct {
	Category       IntentCategory `json:"category"`
	RewrittenQuery string         `json:"rewritten_query"`
	Confidence     float64        `json:"confidence"`
	TimeRange      *TimeRange     `json:"time_range,omitempty"`
	Entities       Entities       `json:"entities"`
}

const promptTimeLayout = "2006-01-02 15:04:05"

// HydrateIntent builds an Intent from the model's decoded JSON, applying every
// default in one place. originalQuery backs rewritten_query when the model
// omitted it. A time range survives hydration only when explicit=true and both
// endpoints parse; otherwise it is dropped entirely rather than guessed.
func HydrateIntent(raw map[string]interface{}, originalQuery string) Intent {
	intent := Intent{
		Category:       CategoryGeneral,
		RewrittenQuery: originalQuery,
		Entities: Entities{
			Keywords:   []string{},
			ErrorCodes: []string{},
		},
	}

	switch strings.ToLower(asString(raw["category"])) {
	case string(CategoryLogQuery):
		intent.Category = CategoryLogQuery
	case string(CategoryDocsQuery):
		intent.Category = CategoryDocsQuery
	}

	if rq := strings.TrimSpace(asString(raw["rewritten_query"])); rq != "" {
		intent.RewrittenQuery = rq
	}
	if c, ok := raw["confidence"].(float64); ok && c >= 0 && c <= 1 {
		intent.Confidence = c
	}

	if tr, ok := raw["time_range"].(map[string]interface{}); ok {
		explicit := asBool(tr["explicit"])
		start, errStart := parsePromptTime(asString(tr["start"]))
		end, errEnd := parsePromptTime(asString(tr["end"]))
		if explicit && errStart == nil && errEnd == nil && !end.Before(start) {
			intent.TimeRange = &TimeRange{Start: start, End: end, Explicit: true}
		}
	}

	if ent, ok := raw["entities"].(map[string]interface{}); ok {
		intent.Entities.LogType = strings.TrimSpace(asString(ent["log_type"]))
		intent.Entities.Service = strings.TrimSpace(asString(ent["service"]))
		intent.Entities.Keywords = asStringSlice(ent["keywords"])
		intent.Entities.ErrorCodes = asStringSlice(ent["error_codes"])
		intent.Entities.ExplicitLogSource = asBool(ent["explicit_log_source"])
		if !intent.Entities.ExplicitLogSource {
			intent.Entities.LogType = ""
		}
	}

	return intent
}

func parsePromptTime(s string) (time.Time, error) {
	return time.ParseInLocation(promptTimeLayout, strings.TrimSpace(s), time.Local)
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}

func asStringSlice(v interface{}) []string {
	out := []string{}
	items, ok := v.([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
