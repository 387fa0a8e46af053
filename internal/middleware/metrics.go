package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/salonhub/pkg/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics observes request latency labelled by route template and scope.
// Tenant slugs are never label values; the scope label only says whether the
// request ran inside a tenant.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		metrics.APILatency.
			WithLabelValues(c.Request.Method, routeLabel(c), strconv.Itoa(c.Writer.Status()), requestScope(c)).
			Observe(time.Since(start).Seconds())
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

func requestScope(c *gin.Context) string {
	if _, ok := TenantFromContext(c); ok {
		return "tenant"
	}
	return "public"
}
