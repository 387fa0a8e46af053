package app

import (
	"github.com/charlesng35/salonhub/internal/auth"
	"github.com/charlesng35/salonhub/internal/database"
	"github.com/charlesng35/salonhub/internal/tenant"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// ServerConfig converts DatabaseConfig into schema server options.
func (c DatabaseConfig) ServerConfig() database.Config {
	return database.Config{
		Driver:   c.Driver,
		Path:     c.Path,
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.Username,
		Password: c.Password,
		Name:     c.Database,
		Options:  c.Options,
	}
}

// PoolOptions converts PoolConfig into registry pool bounds, keeping the
// defaults for unset values.
func (c PoolConfig) PoolOptions() database.PoolOptions {
	opts := database.DefaultPoolOptions()
	if c.MaxOpenConns > 0 {
		opts.MaxOpenConns = c.MaxOpenConns
	}
	if c.MaxIdleConns > 0 {
		opts.MaxIdleConns = c.MaxIdleConns
	}
	if c.ConnMaxLifetime > 0 {
		opts.ConnMaxLifetime = c.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime > 0 {
		opts.ConnMaxIdleTime = c.ConnMaxIdleTime
	}
	return opts
}

// Naming converts TenancyConfig into the tenant schema naming convention.
func (c TenancyConfig) Naming() tenant.Naming {
	naming := tenant.DefaultNaming()
	if c.SchemaPrefix != "" {
		naming.Prefix = c.SchemaPrefix
	}
	if c.AccountSuffix != "" {
		naming.AccountSuffix = c.AccountSuffix
	}
	return naming
}
