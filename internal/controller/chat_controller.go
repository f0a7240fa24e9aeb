package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"loginsight-backend/internal/dto"
	"loginsight-backend/internal/events"
	"loginsight-backend/internal/model"
	"loginsight-backend/internal/service"
	"loginsight-backend/internal/store"
	"loginsight-backend/internal/util"
)

type ChatController struct {
	orchestrator  service.Orchestrator
	conversations store.ConversationStore
	eventStore    *events.PostgresEventStore
}

func NewChatController(orchestrator service.Orchestrator, conversations store.ConversationStore, eventStore *events.PostgresEventStore) *ChatController {
	return &ChatController{
		orchestrator:  orchestrator,
		conversations: conversations,
		eventStore:    eventStore,
	}
}

func RegisterChatRoutes(router *gin.Engine, controller *ChatController) {
	v1 := router.Group("/api/v1/chat")
	{
		v1.POST("/sessions", controller.CreateSession)
		v1.POST("/query", controller.HandleQuery)
		v1.GET("/sessions/:id/history", controller.GetHistory)
		v1.GET("/sessions/:id/events", controller.GetSessionEvents)
	}
}

// CreateSession godoc
// @Summary      Create a chat session
// @Description  Opens a new conversation session and returns its ID. All subsequent queries must reference this ID.
// @Tags         chat
// @Produce      json
// @Success      200 {object} dto.ChatSessionResponse "Session created"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/chat/sessions [post]
func (c *ChatController) CreateSession(ctx *gin.Context) {
	sessionID, err := c.conversations.CreateSession(ctx.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to create chat session")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to create session", nil))
		return
	}
	ctx.JSON(http.StatusOK, dto.ChatSessionResponse{SessionID: sessionID})
}

// HandleQuery godoc
// @Summary      Run a natural-language log query
// @Description  Analyzes the query in session context, selects a log index, synthesizes and executes a search query with automatic repair retries, and returns the analysis report with charts. Pipeline failures are returned in the payload's failure field with HTTP 200.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body dto.ChatQueryRequest true "Session ID and user query"
// @Success      200 {object} service.TurnResult "Turn finished. Either the analysis payload or a structured failure."
// @Failure      400 {object} model.Response "Invalid request body"
// @Failure      404 {object} model.Response "Unknown session"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/chat/query [post]
func (c *ChatController) HandleQuery(ctx *gin.Context) {
	var req dto.ChatQueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid chat query request body")
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}

	result, err := c.orchestrator.ProcessTurn(ctx.Request.Context(), req.SessionID, req.Query)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			ctx.JSON(http.StatusNotFound, model.NewResponse("Unknown session: "+req.SessionID, nil))
			return
		}
		log.Error().Err(err).Str("session", req.SessionID).Msg("Internal error processing chat query")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Internal server error", nil))
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// GetHistory godoc
// @Summary      Get session history
// @Description  Returns the retained conversation turns of a session, oldest first.
// @Tags         chat
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} dto.ChatHistoryResponse "Session history"
// @Failure      404 {object} model.Response "Unknown session"
// @Router       /api/v1/chat/sessions/{id}/history [get]
func (c *ChatController) GetHistory(ctx *gin.Context) {
	sessionID := ctx.Param("id")
	entries, err := c.conversations.History(ctx.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			ctx.JSON(http.StatusNotFound, model.NewResponse("Unknown session: "+sessionID, nil))
			return
		}
		log.Error().Err(err).Str("session", sessionID).Msg("Failed to load session history")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to load history", nil))
		return
	}
	ctx.JSON(http.StatusOK, dto.ChatHistoryResponse{SessionID: sessionID, Entries: entries})
}

// GetSessionEvents godoc
// @Summary      Replay a session's progress events
// @Description  Returns the persisted pipeline progress events of a session, optionally bounded by since/until (ISO 8601, "2006-01-02 15:04:05" or epoch milliseconds), oldest first.
// @Tags         chat
// @Produce      json
// @Param        id    path  string true  "Session ID"
// @Param        since query string false "Lower time bound"
// @Param        until query string false "Upper time bound"
// @Success      200 {object} dto.SessionEventsResponse "Persisted events"
// @Failure      400 {object} model.Response "Invalid time bound"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/chat/sessions/{id}/events [get]
func (c *ChatController) GetSessionEvents(ctx *gin.Context) {
	sessionID := ctx.Param("id")

	var since, until time.Time
	if raw := ctx.Query("since"); raw != "" {
		parsed, err := util.ParseTimeFlexible(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid since format. Use ISO 8601 or epoch milliseconds.", nil))
			return
		}
		since = parsed
	}
	if raw := ctx.Query("until"); raw != "" {
		parsed, err := util.ParseTimeFlexible(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid until format. Use ISO 8601 or epoch milliseconds.", nil))
			return
		}
		until = parsed
	}

	list, err := c.eventStore.SessionEvents(ctx.Request.Context(), sessionID, since, until)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("Failed to load session events")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to load session events", nil))
		return
	}
	ctx.JSON(http.StatusOK, dto.SessionEventsResponse{SessionID: sessionID, Events: list})
}
