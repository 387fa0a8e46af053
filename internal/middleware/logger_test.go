package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/salonhub/pkg/logger"
)

func TestLoggerRecordsTenantRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	r := gin.New()
	r.Use(Logger())
	r.GET("/api/dashboard", withTenant("bella_hair", "staff-7"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/api/auth/login", func(c *gin.Context) {
		c.Status(http.StatusUnauthorized)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

	entries := recorded.FilterMessage("request").All()
	require.Len(t, entries, 2)

	tenantLine := entries[0].ContextMap()
	require.Equal(t, "/api/dashboard", tenantLine["path"])
	require.EqualValues(t, http.StatusOK, tenantLine["status"])
	require.Equal(t, "bella_hair", tenantLine["tenant"])
	require.Equal(t, "staff-7", tenantLine["staff_id"])

	publicLine := entries[1].ContextMap()
	require.EqualValues(t, http.StatusUnauthorized, publicLine["status"])
	require.NotContains(t, publicLine, "tenant")
}

func TestMetricsScopeAndRouteLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var scopes, routes []string
	probe := func(c *gin.Context) {
		c.Next()
		scopes = append(scopes, requestScope(c))
		routes = append(routes, routeLabel(c))
	}

	r := gin.New()
	r.Use(Metrics(), probe)
	r.GET("/api/team/:id", withTenant("bella_hair", "staff-7"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/team/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Equal(t, []string{"tenant", "public"}, scopes)
	require.Equal(t, []string{"/api/team/:id", unmatchedRoute}, routes)
}
