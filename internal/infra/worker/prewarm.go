// Package worker runs the scheduled cache prewarm inside the server process.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"daily-digest/internal/handler/http/respond"
	"daily-digest/internal/observability/logging"
)

// Job fills the digest caches for the current day.
type Job interface {
	Prewarm(ctx context.Context) error
}

// Prewarmer runs Job with a timeout and remembers the outcome of the last run.
type Prewarmer struct {
	job     Job
	timeout time.Duration
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	lastRun time.Time
	lastErr error
}

// Option configures a Prewarmer.
type Option func(*Prewarmer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prewarmer) { p.logger = logger }
}

// WithMetrics enables run metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Prewarmer) { p.metrics = m }
}

// WithClock overrides the time source used for LastRun.
func WithClock(now func() time.Time) Option {
	return func(p *Prewarmer) { p.now = now }
}

// NewPrewarmer returns a Prewarmer for job. A non-positive timeout means none.
func NewPrewarmer(job Job, timeout time.Duration, opts ...Option) *Prewarmer {
	p := &Prewarmer{
		job:     job,
		timeout: timeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one prewarm and records its outcome.
func (p *Prewarmer) Run(ctx context.Context) error {
	start := time.Now()
	p.record("started")
	p.logger.Info("prewarm started")

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	ctx = logging.WithLogger(ctx, p.logger)

	err := p.job.Prewarm(ctx)

	p.mu.Lock()
	p.lastRun = p.now()
	p.lastErr = err
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordDuration(time.Since(start).Seconds())
	}
	if err != nil {
		p.record("failure")
		p.logger.Error("prewarm failed", slog.String("error", respond.SanitizeError(err)))
		return err
	}
	p.record("success")
	if p.metrics != nil {
		p.metrics.RecordLastSuccess()
	}
	return nil
}

func (p *Prewarmer) record(status string) {
	if p.metrics != nil {
		p.metrics.RecordRun(status)
	}
}

// LastRun returns when the last run finished and its error.
// The time is zero before the first run.
func (p *Prewarmer) LastRun() (time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRun, p.lastErr
}

// Schedule registers Run on a cron scheduler evaluated in loc.
// The caller starts and stops the returned scheduler.
func (p *Prewarmer) Schedule(ctx context.Context, schedule string, loc *time.Location) (*cron.Cron, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(schedule, func() {
		_ = p.Run(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule prewarm %q: %w", schedule, err)
	}
	p.logger.Info("prewarm scheduled",
		slog.String("schedule", schedule),
		slog.String("timezone", loc.String()))
	return c, nil
}
