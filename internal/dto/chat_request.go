package dto

// ChatQueryRequest is one user turn. Query is deliberately not required at
// the binding level: an empty query flows through the pipeline and comes back
// as a structured parameter_error rather than a bare 400.
type ChatQueryRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Query     string `json:"query"`
}
