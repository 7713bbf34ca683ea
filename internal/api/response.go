package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schoolattend/internal/apperr"
	"schoolattend/internal/logger"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

// fail writes err as an envelope. Internal causes are logged, never returned.
func fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	log := logger.FromGin(c)
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	case apperr.KindOf(err) == apperr.KindUnauthenticated:
		// the authenticator already logged the reason
	default:
		log.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: apperr.Message(err)})
}

// bindJSON decodes and validates the body into dst, writing a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, validationFrom(err))
		return false
	}
	return true
}
