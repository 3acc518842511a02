package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// DefaultScheduleInterval is how often Scheduler triggers a run.
const DefaultScheduleInterval = time.Minute

// Runner is anything that can run one scheduled processing cycle.
type Runner interface {
	RunScheduled(ctx context.Context) (*RunSummary, error)
}

// Scheduler calls a Runner on a fixed interval. Runs never overlap: a tick
// that fires while the previous run is still going is dropped.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	pool     *ants.Pool
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler) error

// WithInterval sets the tick interval.
func WithInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) error {
		if interval <= 0 {
			return errors.New("schedule interval must be positive")
		}
		s.interval = interval
		return nil
	}
}

// WithSchedulerLogger sets a custom logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a scheduler. Call Release when done.
func NewScheduler(runner Runner, opts ...SchedulerOption) (*Scheduler, error) {
	if runner == nil {
		return nil, ErrRunnerRequired
	}

	s := &Scheduler{
		runner:   runner,
		interval: DefaultScheduleInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scheduler")

	// One worker and no queue: a busy pool rejects the submission
	pool, err := ants.NewPool(1, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return s, nil
}

// Trigger starts a run in the background. It returns false if a run is
// already in flight.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	s.wg.Add(1)
	err := s.pool.Submit(func() {
		defer s.wg.Done()
		if _, err := s.runner.RunScheduled(ctx); err != nil {
			s.logger.Error("scheduled run failed", "err", err)
		}
	})
	if err != nil {
		s.wg.Done()
		if errors.Is(err, ants.ErrPoolOverload) {
			s.logger.Warn("previous run still in progress, skipping tick")
		} else {
			s.logger.Error("could not start scheduled run", "err", err)
		}
		return false
	}
	return true
}

// Run triggers a run immediately and then on every tick until ctx is done.
// It waits for an in-flight run to finish before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)
	s.Trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.Trigger(ctx)
		}
	}
}

// Wait blocks until any in-flight run finishes.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Release frees the worker pool.
func (s *Scheduler) Release() {
	s.pool.Release()
}
