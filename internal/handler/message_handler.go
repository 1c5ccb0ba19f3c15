package handler

import (
	"net/http"

	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	service *services.MessageService
}

func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// History serves GET /v1/conversations/:id/messages?before=<id>&limit=<n>.
func (h *MessageHandler) History(c *gin.Context) {
	conversationID, ok := parseUintParam(c, "id")
	if !ok {
		badRequest(c, "invalid conversation id")
		return
	}
	before, err := parseOptionalUint(c.Query("before"))
	if err != nil {
		badRequest(c, "invalid before")
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		badRequest(c, "invalid limit")
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	messages, err := h.service.History(c.Request.Context(), userID, conversationID, before, limit)
	if err != nil {
		writeConversationError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewMessageHistoryResponse(messages, services.HistoryLimit(limit))))
}
