package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/salonhub/internal/handlers"
	"github.com/charlesng35/salonhub/internal/monitoring"
	"github.com/charlesng35/salonhub/internal/monitoring/checks"
)

const healthCheckTimeout = 2 * time.Second

func registerHealthRoutes(r *gin.Engine, deps Dependencies) {
	if !deps.Config.Monitoring.Health.Enabled {
		r.GET("/health", disabledHealthHandler)
		r.GET("/api/health", disabledHealthHandler)
		return
	}

	manager := monitoring.NewHealthManager(
		checks.Schema("central_schema", deps.Pools, deps.Config.Tenancy.CentralSchema, healthCheckTimeout),
	)
	if deps.Maintenance != nil {
		manager.Register(checks.Maintenance(deps.Maintenance))
	}

	health := handlers.Health(manager)
	r.GET("/health", health)
	r.GET("/api/health", health)
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
