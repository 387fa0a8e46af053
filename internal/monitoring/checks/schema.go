package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/salonhub/internal/monitoring"
)

const defaultSchemaTimeout = 2 * time.Second

// SchemaPools opens the pool of a named schema.
type SchemaPools interface {
	Get(ctx context.Context, schema string) (*gorm.DB, error)
}

// Schema returns a probe that pings the named schema through the connection
// registry. Login and registration depend on the central schema, so a
// failure here marks the service down.
func Schema(name string, pools SchemaPools, schema string, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck(name, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if pools == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection registry not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultSchemaTimeout))
		defer cancel()

		db, err := pools.Get(probeCtx, schema)
		if err != nil {
			return monitoring.ResultFromError(err, time.Since(start))
		}
		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError(err, time.Since(start))
		}
		return monitoring.ResultFromError(sqlDB.PingContext(probeCtx), time.Since(start))
	})
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
