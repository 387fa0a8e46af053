package database

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/metrics"
)

// DefaultMaxPools bounds the number of schema pools kept open at once.
const DefaultMaxPools = 256

// DefaultEvictionGrace is how long an evicted pool stays open for callers
// still holding it.
const DefaultEvictionGrace = 30 * time.Second

// Registry caches one bounded pool per schema. It is the only path through
// which services reach a schema. The least recently used pool is evicted once
// the cache is full and closed after the eviction grace period; a later Get
// simply reopens it.
type Registry struct {
	server        Server
	poolOpts      PoolOptions
	maxPools      int
	evictionGrace time.Duration

	pools  *lru.Cache[string, *gorm.DB]
	group  singleflight.Group
	closed atomic.Bool
	log    *zap.Logger

	mu       sync.Mutex
	retiring map[*gorm.DB]*time.Timer
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithPoolOptions overrides the per schema pool bounds.
func WithPoolOptions(opts PoolOptions) RegistryOption {
	return func(r *Registry) {
		r.poolOpts = opts
	}
}

// WithMaxPools overrides how many schema pools stay cached.
func WithMaxPools(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxPools = n
		}
	}
}

// WithEvictionGrace overrides how long an evicted pool stays usable before it
// is closed. Zero closes evicted pools immediately.
func WithEvictionGrace(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d >= 0 {
			r.evictionGrace = d
		}
	}
}

// NewRegistry constructs a Registry on top of server.
func NewRegistry(server Server, opts ...RegistryOption) (*Registry, error) {
	if server == nil {
		return nil, fmt.Errorf("database: schema server is required")
	}

	r := &Registry{
		server:        server,
		poolOpts:      DefaultPoolOptions(),
		maxPools:      DefaultMaxPools,
		evictionGrace: DefaultEvictionGrace,
		log:           logger.WithModule("registry"),
		retiring:      make(map[*gorm.DB]*time.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}

	cache, err := lru.NewWithEvict[string, *gorm.DB](r.maxPools, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("database: create pool cache: %w", err)
	}
	r.pools = cache
	return r, nil
}

// Server exposes the underlying schema server.
func (r *Registry) Server() Server {
	return r.server
}

// Get returns the pool for schema, opening and caching it on first use.
// Concurrent first calls for the same schema share a single open.
func (r *Registry) Get(ctx context.Context, schema string) (*gorm.DB, error) {
	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}
	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}

	if db, ok := r.pools.Get(schema); ok {
		return db.WithContext(ctx), nil
	}

	value, err, _ := r.group.Do(schema, func() (any, error) {
		if db, ok := r.pools.Get(schema); ok {
			return db, nil
		}

		// The open outlives a cancelled caller since others may share it.
		db, err := r.server.OpenSchema(context.WithoutCancel(ctx), schema, r.poolOpts)
		if err != nil {
			return nil, err
		}

		r.pools.Add(schema, db)
		metrics.CachedPools.Set(float64(r.pools.Len()))
		r.log.Debug("schema pool opened", logger.Schema(schema))
		return db, nil
	})
	if err != nil {
		return nil, err
	}

	return value.(*gorm.DB).WithContext(ctx), nil
}

// Drop evicts the pool for schema and closes it without waiting for the
// eviction grace. It reports whether a pool was cached.
func (r *Registry) Drop(schema string) bool {
	db, ok := r.pools.Peek(schema)
	removed := r.pools.Remove(schema)
	metrics.CachedPools.Set(float64(r.pools.Len()))
	if ok {
		r.closeRetired(schema, db)
	}
	return removed
}

// Len reports how many pools are cached.
func (r *Registry) Len() int {
	return r.pools.Len()
}

// Close closes every cached pool and the server. The registry is unusable afterwards.
func (r *Registry) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs error
	for _, schema := range r.pools.Keys() {
		if db, ok := r.pools.Peek(schema); ok {
			errs = multierr.Append(errs, closeGorm(db))
		}
	}
	r.pools.Purge()
	metrics.CachedPools.Set(0)

	r.mu.Lock()
	retiring := r.retiring
	r.retiring = make(map[*gorm.DB]*time.Timer)
	r.mu.Unlock()
	for db, timer := range retiring {
		timer.Stop()
		errs = multierr.Append(errs, closeGorm(db))
	}

	return multierr.Append(errs, r.server.Close())
}

// onEvict parks the evicted pool for the eviction grace. Callers that fetched
// it before the eviction may still be using it.
func (r *Registry) onEvict(schema string, db *gorm.DB) {
	if r.closed.Load() {
		return
	}
	metrics.PoolEvictions.Inc()
	if r.evictionGrace <= 0 {
		r.closePool(schema, db)
		return
	}

	r.mu.Lock()
	r.retiring[db] = time.AfterFunc(r.evictionGrace, func() {
		r.closeRetired(schema, db)
	})
	r.mu.Unlock()
}

// closeRetired closes a parked pool once. Later calls for the same pool are no-ops.
func (r *Registry) closeRetired(schema string, db *gorm.DB) {
	r.mu.Lock()
	timer, ok := r.retiring[db]
	delete(r.retiring, db)
	r.mu.Unlock()
	if !ok {
		return
	}
	timer.Stop()
	r.closePool(schema, db)
}

// Retiring reports how many evicted pools are waiting to be closed.
func (r *Registry) Retiring() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.retiring)
}

func (r *Registry) closePool(schema string, db *gorm.DB) {
	if err := closeGorm(db); err != nil {
		r.log.Warn("failed to close evicted pool", logger.Schema(schema), zap.Error(err))
		return
	}
	r.log.Debug("schema pool closed", logger.Schema(schema))
}
