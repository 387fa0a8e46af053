// Package maintenance schedules the background jobs that finish interrupted
// tenant provisioning and keep every tenant schema structurally current.
package maintenance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/salonhub/pkg/logger"
)

const (
	defaultResumeSpec  = "@every 10m"
	defaultRepairSpec  = "@daily"
	defaultStaleAfter  = 10 * time.Minute
	defaultJobDeadline = 30 * time.Minute

	jobResume = "resume"
	jobRepair = "repair"
)

// Tenants is the provisioning surface the jobs drive. *services.Provisioner
// satisfies it.
type Tenants interface {
	Resume(ctx context.Context, olderThan time.Duration) (int, error)
	RepairAll(ctx context.Context) (int, error)
}

// Scheduler runs tenant maintenance on cron schedules.
type Scheduler struct {
	tenants    Tenants
	cron       *cron.Cron
	log        *zap.Logger
	staleAfter time.Duration
	deadline   time.Duration

	resumeSchedule string
	repairSchedule string

	// one job at a time; Resume and RepairAll both open every tenant pool
	mu sync.Mutex

	statusMu sync.RWMutex
	status   map[string]*JobStatus
}

// JobStatus describes the recent history of one maintenance job.
type JobStatus struct {
	Name                string    `json:"name"`
	TotalRuns           int       `json:"total_runs"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastRunAt           time.Time `json:"last_run_at"`
	LastError           string    `json:"last_error,omitempty"`
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithResumeSchedule overrides the cron expression for resuming stuck provisioning.
func WithResumeSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.resumeSchedule = spec
		}
	}
}

// WithRepairSchedule overrides the cron expression for the full schema repair.
func WithRepairSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.repairSchedule = spec
		}
	}
}

// WithStaleAfter sets how long a tenant may stay provisioning or failed
// before the resume job picks it up.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithJobDeadline bounds a single job run.
func WithJobDeadline(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.deadline = d
		}
	}
}

// NewScheduler constructs a Scheduler with the default schedules.
func NewScheduler(tenants Tenants, opts ...Option) (*Scheduler, error) {
	if tenants == nil {
		return nil, errors.New("maintenance: tenants are required")
	}

	s := &Scheduler{
		tenants:        tenants,
		staleAfter:     defaultStaleAfter,
		deadline:       defaultJobDeadline,
		resumeSchedule: defaultResumeSpec,
		repairSchedule: defaultRepairSpec,
		log:            logger.WithModule("maintenance"),
		status:         make(map[string]*JobStatus),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	}
	return s, nil
}

// Start registers both jobs and launches the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.resumeSchedule, func() { s.runJob(jobResume, s.resume) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.repairSchedule, func() { s.runJob(jobRepair, s.repair) }); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes both jobs sequentially. Used at startup and in tests.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return multierr.Combine(
		s.record(jobResume, s.resume(ctx)),
		s.record(jobRepair, s.repair(ctx)),
	)
}

// Jobs returns a snapshot of every job that has run at least once, ordered
// resume first.
func (s *Scheduler) Jobs() []JobStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	jobs := make([]JobStatus, 0, len(s.status))
	for _, name := range []string{jobResume, jobRepair} {
		if st, ok := s.status[name]; ok {
			jobs = append(jobs, *st)
		}
	}
	return jobs
}

func (s *Scheduler) record(name string, err error) error {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	st, ok := s.status[name]
	if !ok {
		st = &JobStatus{Name: name}
		s.status[name] = st
	}
	st.TotalRuns++
	st.LastRunAt = time.Now().UTC()
	if err != nil {
		st.ConsecutiveFailures++
		st.LastError = err.Error()
	} else {
		st.ConsecutiveFailures = 0
		st.LastError = ""
	}
	return err
}

func (s *Scheduler) runJob(name string, job func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.deadline)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(name, job(ctx)); err != nil {
		s.log.Warn("maintenance job failed", zap.String("job", name), zap.Error(err))
	}
}

func (s *Scheduler) resume(ctx context.Context) error {
	resumed, err := s.tenants.Resume(ctx, s.staleAfter)
	if resumed > 0 {
		s.log.Info("resumed tenant provisioning", zap.Int("tenants", resumed))
	}
	return err
}

func (s *Scheduler) repair(ctx context.Context) error {
	repaired, err := s.tenants.RepairAll(ctx)
	s.log.Info("repaired tenant schemas", zap.Int("schemas", repaired))
	return err
}
