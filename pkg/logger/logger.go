// Package logger holds the process-wide zap logger and the field helpers used
// to tag log lines with the tenant, schema or staff member they concern.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger = zap.NewNop()
	mu           sync.RWMutex
)

// Init builds the global logger. Format "console" selects the human readable
// development encoder; anything else produces JSON. An unparsable level falls
// back to info.
func Init(level, format string) error {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(format), "console") {
		cfg = zap.NewDevelopmentConfig()
	}

	zapLevel, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	Replace(built)
	return nil
}

// Replace swaps the global logger and returns a func restoring the previous one.
func Replace(l *zap.Logger) (restore func()) {
	if l == nil {
		l = zap.NewNop()
	}

	mu.Lock()
	prev := globalLogger
	globalLogger = l
	mu.Unlock()

	return func() { Replace(prev) }
}

// Logger returns the configured global logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()

	return globalLogger
}

// Sync flushes buffered log entries.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns a child logger annotated with the module name.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// Schema tags a log line with the schema it concerns.
func Schema(name string) zap.Field {
	return zap.String("schema", name)
}

// Tenant tags a log line with a tenant slug.
func Tenant(slug string) zap.Field {
	return zap.String("tenant", slug)
}

// Staff tags a log line with the acting staff member's id.
func Staff(id string) zap.Field {
	return zap.String("staff_id", id)
}
