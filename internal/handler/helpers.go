package handler

import (
	"strconv"

	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"
	chat_errors "marketplace-chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func parseOptionalUint(value string) (uint, error) {
	if value == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(value, 10, 64)
	return uint(id), err
}

func parseOptionalInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, chat_errors.ErrUnauthorized)
	}
	return userID, ok
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(400, httpdto.NewErrorResponse(msg, "INVALID_REQUEST"))
}

// writeError hands the error to middleware.ErrorHandler, which renders it.
func writeError(c *gin.Context, err error) {
	c.Status(services.HTTPStatus(err))
	_ = c.Error(err)
	c.Abort()
}

// writeConversationError renders unknown conversations and outsiders alike,
// so the response does not reveal whether the conversation exists.
func writeConversationError(c *gin.Context, err error) {
	if chat_errors.IsAuthorizationDenied(err) {
		err = chat_errors.ErrNotFound
	}
	writeError(c, err)
}
