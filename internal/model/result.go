package model

// ResultEnvelope is the normalized outcome of one search execution, shared by
// both engine dialects.
type ResultEnvelope struct {
	Total        int64                    `json:"total"`
	Documents    []map[string]interface{} `json:"documents"`
	Aggregations map[string]interface{}   `json:"aggregations,omitempty"`
	TookMs       int64                    `json:"took_ms,omitempty"`
}

// SynthesisOutcome classifies one generate-and-execute attempt.
type SynthesisOutcome string

const (
	OutcomeAccepted SynthesisOutcome = "accepted"
	OutcomeError    SynthesisOutcome = "error"
	OutcomeEmpty    SynthesisOutcome = "empty"
)

// SynthesisAttempt is one link in a turn's retry chain. Each attempt after the
// first feeds the prior attempt's body and error note back into generation.
type SynthesisAttempt struct {
	QueryBody   map[string]interface{} `json:"query_body"`
	Outcome     SynthesisOutcome       `json:"outcome"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
}
