package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/salonhub/pkg/crypto"
)

const (
	jwtSecretBytes       = 48
	defaultCentralSchema = "salonhub_central"
)

// runtimeDefault fills one setting that must never be empty at startup.
type runtimeDefault struct {
	key   string
	unset func(*Config) bool
	fill  func(*Config) error
}

var runtimeDefaults = []runtimeDefault{
	{
		// A generated secret invalidates every session on restart.
		key:   "auth.jwt.secret",
		unset: func(c *Config) bool { return strings.TrimSpace(c.Auth.JWT.Secret) == "" },
		fill: func(c *Config) error {
			secret, err := crypto.GenerateToken(jwtSecretBytes)
			if err != nil {
				return fmt.Errorf("generate jwt secret: %w", err)
			}
			c.Auth.JWT.Secret = secret
			return nil
		},
	},
	{
		key:   "tenancy.central_schema",
		unset: func(c *Config) bool { return strings.TrimSpace(c.Tenancy.CentralSchema) == "" },
		fill: func(c *Config) error {
			c.Tenancy.CentralSchema = defaultCentralSchema
			return nil
		},
	},
	{
		// Invitation links point back at this server until a frontend URL is set.
		key:   "auth.invitation.base_url",
		unset: func(c *Config) bool { return strings.TrimSpace(c.Auth.Invitation.BaseURL) == "" },
		fill: func(c *Config) error {
			port := c.Server.Port
			if port <= 0 {
				port = 8000
			}
			c.Auth.Invitation.BaseURL = fmt.Sprintf("http://localhost:%d/api/auth/invitation", port)
			return nil
		},
	},
}

// ApplyRuntimeDefaults fills settings the server cannot start without and
// reports which keys it generated so callers can log them without the values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	generated := make(map[string]bool, len(runtimeDefaults))
	for _, d := range runtimeDefaults {
		if !d.unset(cfg) {
			continue
		}
		if err := d.fill(cfg); err != nil {
			return nil, err
		}
		generated[d.key] = true
	}
	return generated, nil
}
