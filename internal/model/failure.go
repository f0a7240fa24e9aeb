package model

import "fmt"

type FailureKind string

const (
	FailureParameterError     FailureKind = "parameter_error"
	FailureIncompleteResult   FailureKind = "incomplete_result"
	FailureNoIndex            FailureKind = "no_index"
	FailureSynthesisError     FailureKind = "synthesis_error"
	FailureEmptyResult        FailureKind = "empty_result"
	FailureExecutionExhausted FailureKind = "execution_exhausted"
	FailureSummarizationError FailureKind = "summarization_error"
)

// Failure is a pipeline-stage error carrying its machine-readable kind plus
// whatever diagnostic payload the stage had when it gave up.
type Failure struct {
	Kind    FailureKind
	Message string
	// Detail holds stage-specific diagnostics: the partial JSON object for
	// incomplete_result, the last query body and error text for
	// execution_exhausted.
	Detail map[string]interface{}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func NewFailure(kind FailureKind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

func NewFailureWithDetail(kind FailureKind, message string, detail map[string]interface{}) *Failure {
	return &Failure{Kind: kind, Message: message, Detail: detail}
}

// FailureKindOf extracts the failure kind from an error chain, or "" when the
// error is not a pipeline Failure.
func FailureKindOf(err error) FailureKind {
	if f, ok := err.(*Failure); ok {
		return f.Kind
	}
	return ""
}
