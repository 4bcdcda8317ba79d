// Package jobs runs background maintenance on a cron schedule in the campus timezone.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/campus-yoga/internal/campustime"
)

// DefaultExtendSpec runs the horizon job daily at 03:00 campus time.
const DefaultExtendSpec = "0 3 * * *"

// DefaultHorizonDays is how far ahead open-ended series are materialised.
const DefaultHorizonDays = 56

// Func is a unit of scheduled work.
type Func func(ctx context.Context) error

// RunObserver is told about every job execution.
type RunObserver func(job string, err error)

// Scheduler wraps a cron runner with context propagation and slog logging.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	observe RunObserver
	timeout time.Duration
	loc     *time.Location

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithObserver registers a callback invoked after each run.
func WithObserver(fn RunObserver) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.observe = fn
		}
	}
}

// WithTimeout bounds a single run. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// NewScheduler creates a scheduler evaluating specs in loc.
func NewScheduler(loc *time.Location, logger *slog.Logger, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "jobs")
	cronLogger := slogCronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		observe: func(string, error) {},
		loc:     loc,
		entries: make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule registers fn under name. Names are unique.
func (s *Scheduler) Schedule(name, spec string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("jobs: %s has no function", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("jobs: %s already scheduled", name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		_ = s.run(name, fn)
	})
	if err != nil {
		return fmt.Errorf("jobs: schedule %s: %w", name, err)
	}
	s.entries[name] = id
	s.logger.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

// RunNow executes a registered job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string, fn Func) error {
	return s.run(name, fn)
}

// Next reports the next activation of a scheduled job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	if entry.Next.IsZero() {
		return entry.Schedule.Next(time.Now().In(s.loc)), true
	}
	return entry.Next, true
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(name string, fn Func) (err error) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := s.logger.With("job", name)
	start := time.Now()
	defer func() {
		s.observe(name, err)
		if err != nil {
			logger.Error("job failed", "error", err, "duration", time.Since(start))
			return
		}
		logger.Info("job completed", "duration", time.Since(start))
	}()

	err = fn(ctx)
	return
}

// Extender materialises open-ended series up to a horizon date.
type Extender interface {
	ExtendOpenSeries(ctx context.Context, horizon campustime.Date) (int, error)
}

// HorizonJob keeps open-ended series generated a fixed number of days ahead.
type HorizonJob struct {
	extender Extender
	location *time.Location
	days     int
	now      func() time.Time
	logger   *slog.Logger
}

// NewHorizonJob constructs the job. days <= 0 falls back to DefaultHorizonDays.
func NewHorizonJob(extender Extender, loc *time.Location, days int, now func() time.Time, logger *slog.Logger) *HorizonJob {
	if loc == nil {
		loc = time.UTC
	}
	if days <= 0 {
		days = DefaultHorizonDays
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HorizonJob{extender: extender, location: loc, days: days, now: now, logger: logger}
}

// Horizon returns the last campus date that should be materialised.
func (j *HorizonJob) Horizon() campustime.Date {
	return campustime.DateOf(j.now(), j.location).AddDays(j.days)
}

// Run extends every open series through the horizon.
func (j *HorizonJob) Run(ctx context.Context) error {
	if j == nil || j.extender == nil {
		return errors.New("jobs: horizon job not configured")
	}
	horizon := j.Horizon()
	created, err := j.extender.ExtendOpenSeries(ctx, horizon)
	j.logger.InfoContext(ctx, "open series extended", "horizon", horizon.String(), "created", created)
	return err
}

type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
