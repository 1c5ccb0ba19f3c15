package handler

import (
	"net/http"

	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewNotificationResponses(items)))
}

// Seen resolves one notification of the caller.
func (h *NotificationHandler) Seen(c *gin.Context) {
	notificationID, ok := parseUintParam(c, "id")
	if !ok {
		badRequest(c, "invalid notification id")
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.service.MarkSeen(c.Request.Context(), userID, notificationID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"id": notificationID}))
}
