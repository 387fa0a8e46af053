package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/salonhub/internal/app"
	iauth "github.com/charlesng35/salonhub/internal/auth"
	"github.com/charlesng35/salonhub/internal/handlers"
	"github.com/charlesng35/salonhub/internal/middleware"
	"github.com/charlesng35/salonhub/internal/monitoring/checks"
	"github.com/charlesng35/salonhub/internal/services"
)

// Dependencies are the wired services the router exposes over HTTP.
type Dependencies struct {
	Config      *app.Config
	JWT         *iauth.JWTService
	Login       *iauth.LoginService
	Guardian    middleware.SchemaEnsurer
	Pools       checks.SchemaPools
	Staff       *services.StaffService
	Invites     *services.InviteService
	Provisioner *services.Provisioner
	RateStore   middleware.RateStore
	// Maintenance is optional; its job history feeds the health report.
	Maintenance checks.JobReporter
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return fmt.Errorf("config must be provided")
	case d.JWT == nil:
		return fmt.Errorf("jwt service must be provided")
	case d.Login == nil:
		return fmt.Errorf("login service must be provided")
	case d.Guardian == nil:
		return fmt.Errorf("schema guardian must be provided")
	case d.Pools == nil:
		return fmt.Errorf("schema pools must be provided")
	case d.Staff == nil || d.Invites == nil || d.Provisioner == nil:
		return fmt.Errorf("staff, invite and provisioning services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	authHandler, err := handlers.NewAuthHandler(deps.Staff, deps.Login, handlers.WithExposedTokens(cfg.Auth.ExposeTokens))
	if err != nil {
		return nil, err
	}
	inviteHandler, err := handlers.NewInviteHandler(deps.Invites, deps.Staff)
	if err != nil {
		return nil, err
	}
	teamHandler, err := handlers.NewTeamHandler(deps.Staff)
	if err != nil {
		return nil, err
	}
	tenantHandler, err := handlers.NewTenantHandler(deps.Provisioner)
	if err != nil {
		return nil, err
	}

	registerHealthRoutes(r, deps)

	limiter := middleware.RateLimit(deps.RateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
	registerAuthRoutes(r, limiter, authHandler, inviteHandler)

	guard := middleware.TenantGuard(deps.JWT, deps.Guardian, cfg.Tenancy.Naming())
	registerDashboardRoutes(r, guard, teamHandler, inviteHandler, tenantHandler)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
