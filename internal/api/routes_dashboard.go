package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/salonhub/internal/handlers"
	"github.com/charlesng35/salonhub/internal/middleware"
)

func registerDashboardRoutes(
	engine *gin.Engine,
	guard gin.HandlerFunc,
	teamHandler *handlers.TeamHandler,
	inviteHandler *handlers.InviteHandler,
	tenantHandler *handlers.TenantHandler,
) {
	dashboard := engine.Group("/api/dashboard")
	dashboard.Use(guard)

	dashboard.GET("/me", teamHandler.Me)

	team := dashboard.Group("/team")
	{
		team.GET("", teamHandler.List)
		team.DELETE("/:id", middleware.RequireTeamManager(), teamHandler.Deactivate)
		team.GET("/invitations", middleware.RequireTeamManager(), inviteHandler.List)
		team.POST("/invitations", middleware.RequireTeamManager(), inviteHandler.Create)
	}

	dashboard.DELETE("/tenant", middleware.RequireOwner(), tenantHandler.Delete)
}
