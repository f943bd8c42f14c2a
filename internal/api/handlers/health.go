package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/lineup-engine/pkg/cache"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	cache   *cache.ResultCache
	started time.Time
	version string
}

func NewHealthHandler(rc *cache.ResultCache, version string) *HealthHandler {
	return &HealthHandler{cache: rc, started: time.Now(), version: version}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "lineup-engine",
		"version": h.version,
		"uptime":  time.Since(h.started).Truncate(time.Second).String(),
	})
}

// Ready handles GET /ready. The engine itself is stateless, so
// readiness only degrades when the optional result cache is configured
// but unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	deps := gin.H{}
	status := http.StatusOK

	if h.cache != nil {
		if h.cache.Healthy(c.Request.Context()) {
			deps["redis"] = "healthy"
		} else {
			deps["redis"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	} else {
		deps["redis"] = "disabled"
	}

	c.JSON(status, gin.H{
		"status":       http.StatusText(status),
		"dependencies": deps,
	})
}
