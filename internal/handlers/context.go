package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/salonhub/internal/middleware"
	"github.com/charlesng35/salonhub/internal/tenant"
	appErrors "github.com/charlesng35/salonhub/pkg/errors"
	"github.com/charlesng35/salonhub/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// routing returns the tenant and staff id attached by the tenant guard. It
// writes a 401 and returns false when the guard did not run.
func routing(c *gin.Context) (tenant.Identity, string, bool) {
	id, ok := middleware.TenantFromContext(c)
	staffID := middleware.StaffIDFromContext(c)
	if !ok || staffID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return tenant.Identity{}, "", false
	}
	return id, staffID, true
}

func fail(c *gin.Context, err error) {
	response.Error(c, translateError(err))
}
