package dto

import (
	"loginsight-backend/internal/events"
	"loginsight-backend/internal/model"
)

type ChatSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type ChatHistoryResponse struct {
	SessionID string                    `json:"sessionId"`
	Entries   []model.ConversationEntry `json:"entries"`
}

type SessionEventsResponse struct {
	SessionID string         `json:"sessionId"`
	Events    []events.Event `json:"events"`
}
