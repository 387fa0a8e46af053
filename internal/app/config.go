package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the salonhub backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Tenancy     TenancyConfig     `mapstructure:"tenancy"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	LogLevel       string          `mapstructure:"log_level"`
	LogFormat      string          `mapstructure:"log_format"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds requests per client and route on the public auth routes.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes the database server hosting every schema.
type DatabaseConfig struct {
	Driver         string            `mapstructure:"driver"`
	Path           string            `mapstructure:"path"`
	DSN            string            `mapstructure:"dsn"`
	Host           string            `mapstructure:"host"`
	Port           int               `mapstructure:"port"`
	Username       string            `mapstructure:"username"`
	Password       string            `mapstructure:"password"`
	Database       string            `mapstructure:"database"`
	Options        map[string]string `mapstructure:"options"`
	Pool           PoolConfig        `mapstructure:"pool"`
	MaxCachedPools int               `mapstructure:"max_cached_pools"`
	EvictionGrace  time.Duration     `mapstructure:"eviction_grace"`
}

// PoolConfig bounds the connection pool opened for each schema.
type PoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// TenancyConfig holds the tenant naming convention and repair cadence.
type TenancyConfig struct {
	CentralSchema       string        `mapstructure:"central_schema"`
	SchemaPrefix        string        `mapstructure:"schema_prefix"`
	AccountSuffix       string        `mapstructure:"account_suffix"`
	GuardInterval       time.Duration `mapstructure:"guard_interval"`
	ProvisionStaleAfter time.Duration `mapstructure:"provision_stale_after"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT              JWTSettings        `mapstructure:"jwt"`
	Invitation       InvitationSettings `mapstructure:"invitation"`
	PasswordResetTTL time.Duration      `mapstructure:"password_reset_ttl"`
	// ExposeTokens returns verification and reset tokens in API responses.
	ExposeTokens bool `mapstructure:"expose_tokens"`
}

// JWTSettings configures session tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// InvitationSettings configures invitation tokens and links.
type InvitationSettings struct {
	TTL        time.Duration `mapstructure:"ttl"`
	TokenBytes int           `mapstructure:"token_bytes"`
	BaseURL    string        `mapstructure:"base_url"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig schedules the background provisioning and repair jobs.
// Schedules use cron syntax with an optional leading seconds field.
type MaintenanceConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ResumeSchedule string `mapstructure:"resume_schedule"`
	RepairSchedule string `mapstructure:"repair_schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("SALONHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Tenancy.Naming().Validate(); err != nil {
		return nil, fmt.Errorf("config: tenancy: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.rate_limit.requests", 20)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/schemas")
	v.SetDefault("database.pool.max_open_conns", 2)
	v.SetDefault("database.pool.max_idle_conns", 2)
	v.SetDefault("database.pool.conn_max_lifetime", "30m")
	v.SetDefault("database.pool.conn_max_idle_time", "5m")
	v.SetDefault("database.max_cached_pools", 256)
	v.SetDefault("database.eviction_grace", "30s")

	v.SetDefault("tenancy.central_schema", "salonhub_central")
	v.SetDefault("tenancy.schema_prefix", "tenant_")
	v.SetDefault("tenancy.account_suffix", "_management")
	v.SetDefault("tenancy.guard_interval", "5m")
	v.SetDefault("tenancy.provision_stale_after", "10m")

	v.SetDefault("auth.jwt.issuer", "salonhub")
	v.SetDefault("auth.jwt.access_token_ttl", "168h") // 7 days
	v.SetDefault("auth.invitation.ttl", "168h")
	v.SetDefault("auth.invitation.token_bytes", 32)
	v.SetDefault("auth.password_reset_ttl", "5m")
	v.SetDefault("auth.expose_tokens", false)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.resume_schedule", "@every 10m")
	v.SetDefault("maintenance.repair_schedule", "@daily")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
