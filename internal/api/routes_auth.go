package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/salonhub/internal/handlers"
)

func registerAuthRoutes(engine *gin.Engine, limiter gin.HandlerFunc, authHandler *handlers.AuthHandler, inviteHandler *handlers.InviteHandler) {
	auth := engine.Group("/api/auth")
	auth.Use(limiter)
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.GET("/invitation", inviteHandler.Lookup)
		auth.POST("/invitation/accept", inviteHandler.Accept)
	}
}
