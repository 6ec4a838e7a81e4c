// Package httpapi exposes the dialogue and state services over HTTP.
// The JSON shapes follow the transport contract consumed by the bot
// gateway: /process, /log_message, /full_answer, /history, /update_state
// and /state.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dsavelev/dialogvault/internal/common"
	"github.com/dsavelev/dialogvault/internal/logging"
	"github.com/dsavelev/dialogvault/internal/server/services"
)

const defaultHistoryLimit = 20

// DialogueOrchestrator is the slice of the dialogue service the HTTP surface
// needs.
type DialogueOrchestrator interface {
	ProcessTurn(ctx context.Context, userID, chatID int64, text string) (*services.TurnResult, error)
	LogMessage(ctx context.Context, userID, chatID int64, text string, isBotMessage bool) (string, error)
	FetchFullAnswer(ctx context.Context, userID int64, messageID string) (string, error)
	FetchHistory(ctx context.Context, userID int64, limit int) ([]services.HistoryItem, error)
}

// StateLedger is the slice of the state service the HTTP surface needs.
type StateLedger interface {
	UpdateState(ctx context.Context, userID int64, state string, data json.RawMessage) error
	FetchState(ctx context.Context, userID int64) (*services.StateResult, error)
}

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	dialogue DialogueOrchestrator
	state    StateLedger
	ready    *atomic.Bool
	logger   logging.Logger
}

func NewHandler(dialogue DialogueOrchestrator, state StateLedger, ready *atomic.Bool, logger logging.Logger) *Handler {
	return &Handler{
		dialogue: dialogue,
		state:    state,
		ready:    ready,
		logger:   logger.With("module", "httpapi"),
	}
}

// NewRouter builds the gin engine. A non-empty tokenSecret arms bearer-token
// authentication on every route except /health.
func NewRouter(h *Handler, tokenSecret []byte) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.Health)

	api := router.Group("/")
	if len(tokenSecret) > 0 {
		api.Use(RequireToken(tokenSecret))
	}
	api.POST("/process", h.Process)
	api.POST("/log_message", h.LogMessage)
	api.POST("/full_answer", h.FullAnswer)
	api.GET("/history/:user_id", h.History)
	api.POST("/update_state", h.UpdateState)
	api.GET("/state/:user_id", h.State)

	return router
}

type processRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	ChatID      int64  `json:"chat_id" binding:"required"`
	MessageText string `json:"message_text" binding:"required"`
}

type processResponse struct {
	FullAnswer      *string `json:"full_answer"`
	TruncatedAnswer *string `json:"truncated_answer"`
	MessageID       string  `json:"message_id"`
}

// Process runs one conversational turn. A degraded turn (collaborator
// failure) still answers 200 with the fallback payload; only a persistence
// failure is an error to the caller.
func (h *Handler) Process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !callerMayActFor(c, req.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match user_id"})
		return
	}

	result, err := h.dialogue.ProcessTurn(c.Request.Context(), req.UserID, req.ChatID, req.MessageText)
	if err != nil {
		if result == nil {
			h.logger.Error(c.Request.Context(), "process turn failed", "user_id", req.UserID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
			return
		}
		h.logger.Warn(c.Request.Context(), "turn degraded to fallback", "user_id", req.UserID, "error", err)
	}

	c.JSON(http.StatusOK, processResponse{
		FullAnswer:      result.FullAnswer,
		TruncatedAnswer: result.TruncatedAnswer,
		MessageID:       result.MessageID,
	})
}

type logMessageRequest struct {
	UserID       int64  `json:"user_id" binding:"required"`
	ChatID       int64  `json:"chat_id" binding:"required"`
	MessageText  string `json:"message_text"`
	IsBotMessage bool   `json:"is_bot_message"`
}

func (h *Handler) LogMessage(c *gin.Context) {
	var req logMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !callerMayActFor(c, req.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match user_id"})
		return
	}

	messageID, err := h.dialogue.LogMessage(c.Request.Context(), req.UserID, req.ChatID, req.MessageText, req.IsBotMessage)
	if err != nil {
		h.logger.Error(c.Request.Context(), "log message failed", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged", "message_id": messageID})
}

type fullAnswerRequest struct {
	UserID    int64  `json:"user_id" binding:"required"`
	MessageID string `json:"message_id" binding:"required"`
}

// FullAnswer releases withheld content. Authorization is checked live on
// every call; denial is 403 and an unknown or foreign message is 404.
func (h *Handler) FullAnswer(c *gin.Context) {
	var req fullAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !callerMayActFor(c, req.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match user_id"})
		return
	}

	answer, err := h.dialogue.FetchFullAnswer(c.Request.Context(), req.UserID, req.MessageID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotAuthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
		case errors.Is(err, common.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "answer not found"})
		default:
			h.logger.Error(c.Request.Context(), "full answer retrieval failed", "user_id", req.UserID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch full answer"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"full_answer": answer})
}

type historyItem struct {
	MessageID    string  `json:"message_id"`
	IsBotMessage bool    `json:"is_bot_message"`
	SentAt       string  `json:"sent_at"`
	ReadAt       *string `json:"read_at,omitempty"`
	MessageText  *string `json:"message_text,omitempty"`
	FullAnswer   *string `json:"full_answer,omitempty"`
}

func (h *Handler) History(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	if !callerMayActFor(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match user_id"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
	}

	items, err := h.dialogue.FetchHistory(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error(c.Request.Context(), "history retrieval failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	history := make([]historyItem, 0, len(items))
	for _, item := range items {
		out := historyItem{
			MessageID:    item.MessageID,
			IsBotMessage: item.IsBotMessage,
			SentAt:       item.SentAt.Format(time.RFC3339Nano),
			MessageText:  item.Text,
			FullAnswer:   item.FullAnswer,
		}
		if item.ReadAt != nil {
			readAt := item.ReadAt.Format(time.RFC3339Nano)
			out.ReadAt = &readAt
		}
		history = append(history, out)
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

type updateStateRequest struct {
	UserID int64           `json:"user_id" binding:"required"`
	State  string          `json:"state" binding:"required"`
	Data   json.RawMessage `json:"data"`
}

func (h *Handler) UpdateState(c *gin.Context) {
	var req updateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !callerMayActFor(c, req.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match user_id"})
		return
	}

	if err := h.state.UpdateState(c.Request.Context(), req.UserID, req.State, req.Data); err != nil {
		h.logger.Error(c.Request.Context(), "state update failed", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "user_id": req.UserID, "state": req.State})
}

func (h *Handler) State(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	if !callerMayActFor(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match user_id"})
		return
	}

	result, err := h.state.FetchState(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error(c.Request.Context(), "state retrieval failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch state"})
		return
	}

	resp := gin.H{"state": result.State, "data": result.Data}
	if result.UpdatedAt != nil {
		resp["updated_at"] = result.UpdatedAt.Format(time.RFC3339Nano)
	}
	c.JSON(http.StatusOK, resp)
}

// Health answers 503 until migrations have run and collaborators are wired.
func (h *Handler) Health(c *gin.Context) {
	if h.ready == nil || !h.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "service": "dialogvault"})
}
