package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/salonhub/internal/monitoring"
)

// Health evaluates the readiness probes. Degraded components still answer 200.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.Evaluate(requestContext(c))

		code := http.StatusOK
		if !report.Ready {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"success":    report.Ready,
			"status":     report.Status,
			"checks":     report.Checks,
			"checked_at": time.Now().UTC(),
		})
	}
}
