package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/salonhub/internal/api"
	"github.com/charlesng35/salonhub/internal/app"
	"github.com/charlesng35/salonhub/internal/app/maintenance"
	iauth "github.com/charlesng35/salonhub/internal/auth"
	"github.com/charlesng35/salonhub/internal/database"
	"github.com/charlesng35/salonhub/internal/middleware"
	"github.com/charlesng35/salonhub/internal/schema"
	"github.com/charlesng35/salonhub/internal/services"
	"github.com/charlesng35/salonhub/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	Server      database.Server
	Registry    *database.Registry
	Guardian    *schema.Guardian
	Directory   *services.DirectoryService
	Provisioner *services.Provisioner
	Invites     *services.InviteService
	Staff       *services.StaffService
	Reconciler  *services.Reconciler
	JWT         *iauth.JWTService
	Login       *iauth.LoginService
	Scheduler   *maintenance.Scheduler
	RateStore   middleware.RateStore
	Router      *gin.Engine
}

// bootstrapRuntime opens the database server, prepares the central schema,
// wires every service and builds the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.Server, err = database.NewServer(cfg.Database.ServerConfig())
	if err != nil {
		return nil, fmt.Errorf("open database server: %w", err)
	}

	registryOpts := []database.RegistryOption{
		database.WithPoolOptions(cfg.Database.Pool.PoolOptions()),
		database.WithEvictionGrace(cfg.Database.EvictionGrace),
	}
	if cfg.Database.MaxCachedPools > 0 {
		registryOpts = append(registryOpts, database.WithMaxPools(cfg.Database.MaxCachedPools))
	}
	stack.Registry, err = database.NewRegistry(stack.Server, registryOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise connection registry: %w", err)
	}

	stack.Guardian, err = schema.NewGuardian(stack.Registry, schema.WithInterval(cfg.Tenancy.GuardInterval))
	if err != nil {
		return nil, fmt.Errorf("initialise schema guardian: %w", err)
	}

	if err := prepareCentralSchema(ctx, stack, cfg.Tenancy.CentralSchema, log); err != nil {
		return nil, err
	}

	central := cfg.Tenancy.CentralSchema
	naming := cfg.Tenancy.Naming()

	stack.Directory, err = services.NewDirectoryService(stack.Registry, central)
	if err != nil {
		return nil, fmt.Errorf("initialise directory: %w", err)
	}

	stack.Provisioner, err = services.NewProvisioner(stack.Server, stack.Registry, stack.Guardian, stack.Directory, central,
		services.WithProvisionerNaming(naming))
	if err != nil {
		return nil, fmt.Errorf("initialise provisioner: %w", err)
	}

	stack.Invites, err = services.NewInviteService(stack.Registry, central,
		services.WithInviteBaseURL(cfg.Auth.Invitation.BaseURL),
		services.WithInviteExpiry(cfg.Auth.Invitation.TTL),
		services.WithInviteTokenSize(cfg.Auth.Invitation.TokenBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise invitations: %w", err)
	}

	stack.Staff, err = services.NewStaffService(stack.Registry, stack.Provisioner, stack.Directory, stack.Invites,
		services.WithPasswordResetTTL(cfg.Auth.PasswordResetTTL))
	if err != nil {
		return nil, fmt.Errorf("initialise staff service: %w", err)
	}

	stack.Reconciler, err = services.NewReconciler(stack.Server, stack.Registry, stack.Directory, stack.Provisioner)
	if err != nil {
		return nil, fmt.Errorf("initialise reconciler: %w", err)
	}

	stack.JWT, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Login, err = iauth.NewLoginService(stack.Directory, stack.Reconciler, stack.Registry, stack.JWT,
		iauth.WithLoginNaming(naming))
	if err != nil {
		return nil, fmt.Errorf("initialise login service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		stack.Scheduler, err = maintenance.NewScheduler(stack.Provisioner,
			maintenance.WithResumeSchedule(cfg.Maintenance.ResumeSchedule),
			maintenance.WithRepairSchedule(cfg.Maintenance.RepairSchedule),
			maintenance.WithStaleAfter(cfg.Tenancy.ProvisionStaleAfter),
		)
		if err != nil {
			return nil, fmt.Errorf("initialise maintenance: %w", err)
		}
		if err := stack.Scheduler.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.RateStore = middleware.NewMemoryRateStore(cfg.Server.RateLimit.Window)

	deps := api.Dependencies{
		Config:      cfg,
		JWT:         stack.JWT,
		Login:       stack.Login,
		Guardian:    stack.Guardian,
		Pools:       stack.Registry,
		Staff:       stack.Staff,
		Invites:     stack.Invites,
		Provisioner: stack.Provisioner,
		RateStore:   stack.RateStore,
	}
	if stack.Scheduler != nil {
		deps.Maintenance = stack.Scheduler
	}
	stack.Router, err = api.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// prepareCentralSchema creates the central schema on first start and repairs
// it. A partial repair is logged; an unreachable server aborts startup.
func prepareCentralSchema(ctx context.Context, stack *runtimeStack, central string, log *zap.Logger) error {
	if err := stack.Server.CreateSchema(ctx, central); err != nil {
		return fmt.Errorf("create central schema: %w", err)
	}

	report, err := stack.Guardian.Ensure(ctx, central, schema.KindCentral)
	if err != nil {
		return fmt.Errorf("prepare central schema: %w", err)
	}
	if err := report.Err(); err != nil {
		log.Warn("central schema partially repaired", logger.Schema(central), zap.Error(err))
	}

	log.Info("database ready",
		zap.String("driver", stack.Server.Dialect()),
		logger.Schema(central),
	)
	return nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		stopCtx := s.Scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs still running at shutdown")
		}
	}

	switch {
	case s.Registry != nil:
		if err := s.Registry.Close(); err != nil {
			log.Warn("failed to close connection registry", zap.Error(err))
		}
	case s.Server != nil:
		if err := s.Server.Close(); err != nil {
			log.Warn("failed to close database server", zap.Error(err))
		}
	}
}
