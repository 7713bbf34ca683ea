package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// health pings every dependency with a short deadline. Any failure is a 503.
func (h *handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(gin.H, len(h.Health))
	for name, check := range h.Health {
		up := check(ctx)
		checks[name] = up
		if !up {
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{"success": status == http.StatusOK, "checks": checks})
}
