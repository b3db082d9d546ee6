package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/mentalbot-service/internal/api/dto"
	"github.com/unifiedui/mentalbot-service/internal/api/middleware"
	"github.com/unifiedui/mentalbot-service/internal/domain/errors"
	"github.com/unifiedui/mentalbot-service/internal/domain/models"
)

// ChatService answers messages and exposes session history.
type ChatService interface {
	SendMessage(ctx context.Context, text, sessionID string) *models.OrchestrationResult
	Session(ctx context.Context, id string) (*models.Session, error)
}

// MessagesHandler handles message-related endpoints.
type MessagesHandler struct {
	chat ChatService
}

// NewMessagesHandler creates a new MessagesHandler.
func NewMessagesHandler(chat ChatService) *MessagesHandler {
	return &MessagesHandler{
		chat: chat,
	}
}

// SendMessage handles POST /messages
// @Summary Send a message
// @Description Answers a user message within a session. A missing, unknown or expired sessionId starts a new session; the returned sessionId must be used for follow-up messages.
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body dto.SendMessageRequest true "Message"
// @Success 200 {object} dto.SendMessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/mentalbot/messages [post]
func (h *MessagesHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}

	text := strings.TrimSpace(req.Message)
	if text == "" {
		middleware.HandleError(c, errors.NewValidationError("invalid request body", "message must not be blank"))
		return
	}

	result := h.chat.SendMessage(c.Request.Context(), text, strings.TrimSpace(req.SessionID))

	c.JSON(http.StatusOK, dto.SendMessageResponse{
		Response:  result.Response,
		SessionID: result.SessionID,
		Source:    string(result.Source),
	})
}

// GetMessages handles GET /sessions/{sessionId}/messages
// @Summary Get session history
// @Description Returns the turns of a live session in order. Reading the history does not extend the session.
// @Tags Messages
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} dto.GetMessagesResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/mentalbot/sessions/{sessionId}/messages [get]
func (h *MessagesHandler) GetMessages(c *gin.Context) {
	sessionID := c.Param("sessionId")

	sess, err := h.chat.Session(c.Request.Context(), sessionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	messages := make([]*dto.MessageResponse, 0, len(sess.History))
	for _, turn := range sess.History {
		messages = append(messages, &dto.MessageResponse{
			Role:      string(turn.Role),
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, dto.GetMessagesResponse{
		SessionID: sess.ID,
		Messages:  messages,
	})
}
