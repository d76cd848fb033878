package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// HealthController answers liveness and health probes.
type HealthController struct {
	ping Pinger
}

func NewHealthController(ping Pinger) *HealthController {
	return &HealthController{ping: ping}
}

// Root handles GET /.
func (hc *HealthController) Root(c *gin.Context) {
	c.String(http.StatusOK, "MOBIKE is running")
}

// Health handles GET /health.
func (hc *HealthController) Health(c *gin.Context) {
	if hc.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := hc.ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "service": "bike-store", "database": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "bike-store"})
}
