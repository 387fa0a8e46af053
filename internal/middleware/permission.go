package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/pkg/errors"
	"github.com/charlesng35/salonhub/pkg/response"
)

// RequireRole allows the request through only when the authenticated staff
// member holds one of roles. It must run after TenantGuard.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRoleKey)
		if role == "" {
			unauthorized(c)
			return
		}
		if !slices.Contains(roles, role) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireTeamManager admits owners and admins.
func RequireTeamManager() gin.HandlerFunc {
	return RequireRole(models.RoleOwner, models.RoleAdmin)
}

// RequireOwner admits only the tenant owner.
func RequireOwner() gin.HandlerFunc {
	return RequireRole(models.RoleOwner)
}
