package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/salonhub/pkg/errors"
	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/metrics"
	"github.com/charlesng35/salonhub/pkg/response"
)

// Recovery turns a handler panic into the standard 500 envelope. The panic is
// logged with the route and, once the tenant guard has run, the tenant and
// staff member whose request triggered it.
func Recovery() gin.HandlerFunc {
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			metrics.RecoveredPanics.Inc()

			fields := []zap.Field{
				zap.String("method", c.Request.Method),
				zap.String("route", routeLabel(c)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			}
			if id, ok := TenantFromContext(c); ok {
				fields = append(fields, logger.Tenant(id.Slug.String()), logger.Staff(StaffIDFromContext(c)))
			}
			log.Error("handler panicked", fields...)

			if !c.Writer.Written() {
				response.Error(c, errors.ErrInternalServer)
			}
			c.Abort()
		}()
		c.Next()
	}
}

// NotFoundHandler answers unknown routes with the JSON 404 envelope.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.ErrNotFound)
}
