package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/salonhub/internal/auth"
	"github.com/charlesng35/salonhub/internal/database"
	"github.com/charlesng35/salonhub/internal/tenant"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig("testdata")
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "console", cfg.Server.LogFormat)
	require.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	require.Equal(t, 50, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Host)
	require.Equal(t, "salonhub", cfg.Database.Database)
	require.Equal(t, "require", cfg.Database.Options["sslmode"])
	require.Equal(t, 4, cfg.Database.Pool.MaxOpenConns)
	require.Equal(t, 2, cfg.Database.Pool.MaxIdleConns)
	require.Equal(t, time.Hour, cfg.Database.Pool.ConnMaxLifetime)
	require.Equal(t, 64, cfg.Database.MaxCachedPools)

	require.Equal(t, "central", cfg.Tenancy.CentralSchema)
	require.Equal(t, time.Minute, cfg.Tenancy.GuardInterval)
	require.Equal(t, 15*time.Minute, cfg.Tenancy.ProvisionStaleAfter)
	require.Equal(t, tenant.Naming{Prefix: "salon_", AccountSuffix: "_accounts"}, cfg.Tenancy.Naming())

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 24*time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 72*time.Hour, cfg.Auth.Invitation.TTL)
	require.Equal(t, 24, cfg.Auth.Invitation.TokenBytes)
	require.Equal(t, "https://app.example.com/invite", cfg.Auth.Invitation.BaseURL)
	require.Equal(t, 10*time.Minute, cfg.Auth.PasswordResetTTL)
	require.True(t, cfg.Auth.ExposeTokens)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.True(t, cfg.Monitoring.Health.Enabled)

	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 5m", cfg.Maintenance.ResumeSchedule)
	require.Equal(t, "0 3 * * *", cfg.Maintenance.RepairSchedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 256, cfg.Database.MaxCachedPools)
	require.Equal(t, 30*time.Second, cfg.Database.EvictionGrace)
	require.Equal(t, tenant.DefaultNaming(), cfg.Tenancy.Naming())
	require.Equal(t, 5*time.Minute, cfg.Tenancy.GuardInterval)
	require.Equal(t, auth.DefaultAccessTokenTTL, cfg.Auth.JWT.TTL)
	require.Equal(t, 32, cfg.Auth.Invitation.TokenBytes)
	require.Equal(t, "@every 10m", cfg.Maintenance.ResumeSchedule)
	require.Equal(t, "@daily", cfg.Maintenance.RepairSchedule)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SALONHUB_SERVER_PORT", "9191")
	t.Setenv("SALONHUB_TENANCY_CENTRAL_SCHEMA", "directory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "directory", cfg.Tenancy.CentralSchema)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "secret", Issuer: "issuer", TTL: 30 * time.Minute}}
	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())

	var empty AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, empty.JWTServiceConfig().AccessTokenTTL)
}

func TestDatabaseConfigAdapters(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:   "mysql",
		Host:     "db",
		Port:     3306,
		Username: "root",
		Password: "pw",
		Database: "salonhub",
		Pool:     PoolConfig{MaxOpenConns: 5},
	}

	server := cfg.ServerConfig()
	require.Equal(t, "mysql", server.Driver)
	require.Equal(t, "root", server.User)
	require.Equal(t, "salonhub", server.Name)

	pool := cfg.Pool.PoolOptions()
	defaults := database.DefaultPoolOptions()
	require.Equal(t, 5, pool.MaxOpenConns)
	require.Equal(t, defaults.MaxIdleConns, pool.MaxIdleConns)
	require.Equal(t, defaults.ConnMaxLifetime, pool.ConnMaxLifetime)
}
