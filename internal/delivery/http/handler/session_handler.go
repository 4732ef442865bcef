package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoagent/internal/domain/entities"
	"todoagent/internal/usecase/interfaces"
	. "todoagent/pkg/config"
	. "todoagent/pkg/response"
)

// SessionHandler serves conversation histories
type SessionHandler struct {
	sessionUseCase interfaces.SessionUseCase
	Logger         *LokiLogger
}

func NewSessionHandler(sessionUseCase interfaces.SessionUseCase, logger *LokiLogger) *SessionHandler {
	if logger == nil {
		logger = NewNopLogger()
	}

	return &SessionHandler{sessionUseCase: sessionUseCase, Logger: logger}
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	history, err := h.sessionUseCase.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to load session", err)
		return
	}

	SendSuccess(c, http.StatusOK, entities.Session{History: history})
}

func (h *SessionHandler) AppendMessages(c *gin.Context) {
	var req interfaces.AppendMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendValidationError(c, err)
		return
	}

	history, err := h.sessionUseCase.AppendMessages(c.Request.Context(), c.Param("id"), req.Messages)
	if err != nil {
		h.fail(c, "Failed to append messages", err)
		return
	}

	SendSuccess(c, http.StatusOK, entities.Session{History: history})
}

func (h *SessionHandler) ResetSession(c *gin.Context) {
	if err := h.sessionUseCase.ResetSession(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "Failed to reset session", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) fail(c *gin.Context, msg string, err error) {
	LogError(c.Request.Context(), h.Logger, err, msg, zap.String("session_id", c.Param("id")))
	SendDomainError(c, err)
}
