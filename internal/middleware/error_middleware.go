package middleware

import (
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"
	"marketplace-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error attached with c.Error, mapping domain
// errors to their HTTP status.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := services.HTTPStatus(err)
		if l != nil && status >= 500 {
			l.WithContext(c.Request.Context()).Error("request error", zap.Error(err))
		}
		requestID, _ := c.Request.Context().Value(logger.RequestIdKey).(string)
		c.JSON(status, httpdto.NewErrorResponse(publicMessage(status, err), errorCode(status)).WithRequestID(requestID))
	}
}

func publicMessage(status int, err error) string {
	if status >= 500 {
		return "internal error"
	}
	return err.Error()
}

func errorCode(status int) string {
	switch status {
	case 400:
		return "INVALID_INPUT"
	case 401:
		return "UNAUTHORIZED"
	case 403:
		return "FORBIDDEN"
	case 404:
		return "NOT_FOUND"
	case 409:
		return "CONFLICT"
	case 429:
		return "RATE_LIMITED"
	default:
		return "INTERNAL_ERROR"
	}
}
