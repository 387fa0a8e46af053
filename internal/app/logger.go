package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/charlesng35/salonhub/pkg/logger"
)

// ConfigureLogging installs the process-wide logger from the server section.
// An empty level means info; an unknown level is a configuration error rather
// than a silent fallback.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if level == "" {
		level = zapcore.InfoLevel.String()
	}
	if _, err := zapcore.ParseLevel(level); err != nil {
		return fmt.Errorf("server.log_level: %w", err)
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "", "json", "console":
	default:
		return fmt.Errorf("server.log_format: unsupported format %q", cfg.LogFormat)
	}

	return logger.Init(level, format)
}
