package apirouter

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hookdeck/redishook/internal/worker"
)

// HealthHandler reports 200 while no component has failed, 503 otherwise.
func HealthHandler(tracker *worker.HealthTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := tracker.GetStatus()
		if status.Status == worker.StatusHealthy {
			c.JSON(http.StatusOK, status)
		} else {
			c.JSON(http.StatusServiceUnavailable, status)
		}
	}
}
