package model

import "time"

// ConversationEntry is one turn of a chat session. It is created when the
// analyzer finishes (Intent is nil when analysis failed) and its Response is
// back-filled once at the end of the turn.
type ConversationEntry struct {
	Timestamp time.Time `json:"timestamp"`
	UserQuery string    `json:"user_query"`
	Intent    *Intent   `json:"intent,omitempty"`
	Response  string    `json:"response,omitempty"`
}
