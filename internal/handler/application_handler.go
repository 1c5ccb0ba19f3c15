package handler

import (
	"net/http"

	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// ApplicationHandler lets the marketplace API announce a new application so
// the client side hears about it live.
type ApplicationHandler struct {
	policy *services.DeliveryPolicy
}

func NewApplicationHandler(policy *services.DeliveryPolicy) *ApplicationHandler {
	return &ApplicationHandler{policy: policy}
}

func (h *ApplicationHandler) Applied(c *gin.Context) {
	applicationID, ok := parseUintParam(c, "id")
	if !ok {
		badRequest(c, "invalid application id")
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	pushed, err := h.policy.FreelancerAppliedBy(c.Request.Context(), userID, applicationID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ApplicationAppliedResponse{Pushed: pushed}))
}
