// Package schema keeps tenant and central schemas structurally current. All
// repairs are additive: tables and columns are created, never altered or dropped.
package schema

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/metrics"
)

// DefaultInterval is how long a fully repaired schema is trusted before the
// guard checks it again.
const DefaultInterval = 5 * time.Minute

var (
	// ErrRepairIncomplete marks a report where at least one step failed.
	ErrRepairIncomplete = errors.New("schema: repair incomplete")
	// ErrUnknownKind is returned for a schema kind without a plan.
	ErrUnknownKind = errors.New("schema: unknown kind")
)

// Pools resolves a schema name to its connection pool.
type Pools interface {
	Get(ctx context.Context, schema string) (*gorm.DB, error)
}

// StepResult records the outcome of a single repair step.
type StepResult struct {
	Step string
	Err  error
}

// Report collects every step outcome of one Ensure call.
type Report struct {
	Schema  string
	Kind    Kind
	Results []StepResult
	// Cached is set when the schema was repaired recently and nothing ran.
	Cached bool
}

// Failed returns the steps that did not apply.
func (r Report) Failed() []StepResult {
	var failed []StepResult
	for _, result := range r.Results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

// OK reports whether every step applied.
func (r Report) OK() bool {
	return len(r.Failed()) == 0
}

// Err combines the failed steps into one error wrapping ErrRepairIncomplete.
func (r Report) Err() error {
	var combined error
	for _, result := range r.Failed() {
		combined = multierr.Append(combined, fmt.Errorf("%s: %w", result.Step, result.Err))
	}
	if combined == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrRepairIncomplete, r.Schema, combined)
}

// Guardian runs repair plans against schemas. It is safe to call on every
// request: successful repairs are remembered for the configured interval.
type Guardian struct {
	pools    Pools
	interval time.Duration
	memo     *cache.Cache
	plans    map[Kind][]Step
	log      *zap.Logger
}

// Option customises a Guardian.
type Option func(*Guardian)

// WithInterval overrides how long a clean schema is skipped. Zero disables the memo.
func WithInterval(d time.Duration) Option {
	return func(g *Guardian) {
		if d >= 0 {
			g.interval = d
		}
	}
}

// WithPlan replaces the plan used for kind.
func WithPlan(kind Kind, steps []Step) Option {
	return func(g *Guardian) {
		g.plans[kind] = steps
	}
}

// NewGuardian constructs a Guardian resolving schemas through pools.
func NewGuardian(pools Pools, opts ...Option) (*Guardian, error) {
	if pools == nil {
		return nil, errors.New("schema: pools are required")
	}

	g := &Guardian{
		pools:    pools,
		interval: DefaultInterval,
		plans:    make(map[Kind][]Step),
		log:      logger.WithModule("guardian"),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.interval > 0 {
		g.memo = cache.New(g.interval, 2*g.interval)
	}
	return g, nil
}

// Ensure applies every step of kind's plan to schema and returns the per-step
// report. Step failures are logged and collected; the returned error is only
// set when the plan or the schema's pool cannot be obtained.
func (g *Guardian) Ensure(ctx context.Context, schema string, kind Kind) (Report, error) {
	report := Report{Schema: schema, Kind: kind}

	steps, err := g.plan(kind)
	if err != nil {
		return report, err
	}

	key := memoKey(schema, kind)
	if g.memo != nil {
		if _, ok := g.memo.Get(key); ok {
			report.Cached = true
			return report, nil
		}
	}

	db, err := g.pools.Get(ctx, schema)
	if err != nil {
		return report, fmt.Errorf("ensure %s schema %s: %w", kind, schema, err)
	}

	report.Results = make([]StepResult, 0, len(steps))
	for _, step := range steps {
		stepErr := ctx.Err()
		if stepErr == nil {
			stepErr = step.Apply(db)
		}
		report.Results = append(report.Results, StepResult{Step: step.Name, Err: stepErr})

		if stepErr != nil {
			metrics.SchemaRepairFailures.WithLabelValues(string(kind)).Inc()
			g.log.Warn("schema repair step failed",
				logger.Schema(schema),
				zap.String("kind", string(kind)),
				zap.String("step", step.Name),
				zap.Error(stepErr),
			)
		}
	}

	if report.OK() && g.memo != nil {
		g.memo.SetDefault(key, struct{}{})
	}
	return report, nil
}

// Forget drops any remembered repair for schema so the next Ensure runs in full.
func (g *Guardian) Forget(schema string) {
	if g.memo == nil {
		return
	}
	for _, kind := range []Kind{KindBusiness, KindAccount, KindCentral} {
		g.memo.Delete(memoKey(schema, kind))
	}
}

func (g *Guardian) plan(kind Kind) ([]Step, error) {
	if steps, ok := g.plans[kind]; ok {
		return steps, nil
	}
	return Plan(kind)
}

func memoKey(schema string, kind Kind) string {
	return string(kind) + ":" + schema
}
