package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/citare/ai"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
	"golang.org/x/time/rate"
)

// Defaults for Manager.
const (
	DefaultMaxJobsPerRun  = 5
	DefaultBatchSize      = 10
	DefaultPacing         = 200 * time.Millisecond
	DefaultRetryBaseDelay = 30 * time.Second
	DefaultRetention      = 7 * 24 * time.Hour
)

// RunSummary describes one RunScheduled invocation.
type RunSummary struct {
	Claimed   int
	Completed int
	Failed    int
	Retrying  int
	JobIDs    []string
}

// Manager drives embedding jobs through their lifecycle:
// pending -> processing -> {completed | failed}, with processing -> retrying
// -> processing while the job has retries left.
type Manager struct {
	jobs           storage.JobRepository
	processor      processor
	limiter        *rate.Limiter
	maxJobsPerRun  int
	chunkSize      int
	pacing         time.Duration
	retryBaseDelay time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithMaxJobsPerRun sets how many jobs one RunScheduled call claims.
// Default is 5.
func WithMaxJobsPerRun(n int) Option {
	return func(m *Manager) error {
		if n < 1 {
			return fmt.Errorf("max jobs per run must be positive, got %d", n)
		}
		m.maxJobsPerRun = n
		return nil
	}
}

// WithPacing sets the minimum interval between provider calls and between
// jobs. Zero disables pacing. Default is 200ms.
func WithPacing(interval time.Duration) Option {
	return func(m *Manager) error {
		if interval < 0 {
			return fmt.Errorf("pacing must not be negative, got %s", interval)
		}
		m.pacing = interval
		return nil
	}
}

// WithRetryBaseDelay sets the first retry backoff. Each further attempt
// doubles it. Default is 30s.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(m *Manager) error {
		if d < 0 {
			return fmt.Errorf("retry base delay must not be negative, got %s", d)
		}
		m.retryBaseDelay = d
		return nil
	}
}

// WithChunkSize sets the chunk size used for entity content.
// Default is DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(m *Manager) error {
		m.chunkSize = size
		return nil
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		m.now = now
		return nil
	}
}

// NewManager creates a job manager.
func NewManager(
	jobs storage.JobRepository,
	records storage.EmbeddingRepository,
	source ContentSource,
	generator *ai.Generator,
	opts ...Option,
) (*Manager, error) {
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}

	m := &Manager{
		jobs:           jobs,
		maxJobsPerRun:  DefaultMaxJobsPerRun,
		chunkSize:      DefaultChunkSize,
		pacing:         DefaultPacing,
		retryBaseDelay: DefaultRetryBaseDelay,
		now:            func() time.Time { return time.Now().UTC() },
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "job-manager")

	if m.pacing > 0 {
		m.limiter = rate.NewLimiter(rate.Every(m.pacing), 1)
	} else {
		m.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	proc, err := newEmbeddingProcessor(records, source, generator, m.limiter, m.chunkSize, m.logger)
	if err != nil {
		return nil, err
	}
	m.processor = proc

	return m, nil
}

// CreateJob persists a new pending job and returns its ID. A nil cfg uses
// the defaults. An empty priority falls back to cfg.Priority, then medium.
func (m *Manager) CreateJob(ctx context.Context, jobType core.JobType, entityIDs []string, priority core.Priority, cfg *core.JobConfig) (string, error) {
	config := core.JobConfig{}
	if cfg != nil {
		config = *cfg
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.RetryCount < 0 {
		config.RetryCount = 0
	}
	if priority != "" {
		config.Priority = priority
	}
	if config.Priority == "" {
		config.Priority = core.PriorityMedium
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	job := &core.EmbeddingJob{
		JobID:       id.String(),
		JobType:     jobType,
		Status:      core.JobStatusPending,
		EntityIDs:   append([]string(nil), entityIDs...),
		Progress:    core.JobProgress{Total: len(entityIDs)},
		Config:      config,
		ScheduledAt: m.now(),
	}
	if err := m.jobs.CreateJob(ctx, job); err != nil {
		return "", err
	}

	m.logger.Info("job created", "job", job.JobID, "type", jobType, "entities", len(entityIDs), "priority", config.Priority)
	return job.JobID, nil
}

// ClaimNextJobs moves up to max claimable jobs to processing, highest
// priority first and oldest first within a priority.
func (m *Manager) ClaimNextJobs(ctx context.Context, max int) ([]*core.EmbeddingJob, error) {
	return m.jobs.ClaimJobs(ctx, max, m.now())
}

// ProcessBatch embeds every entity of a claimed job in list order, BatchSize
// entities at a time. Per-entity failures are recorded in the job's progress
// and processing continues. Progress is persisted after each batch. A store
// failure or cancellation is returned and leaves the job for FailJob.
func (m *Manager) ProcessBatch(ctx context.Context, job *core.EmbeddingJob) error {
	batchSize := job.Config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// A retried job starts over; upserts make repeated work idempotent
	job.ResetProgress()

	logger := m.logger.With("job", job.JobID)
	for start := 0; start < len(job.EntityIDs); start += batchSize {
		end := min(start+batchSize, len(job.EntityIDs))

		for _, entityID := range job.EntityIDs[start:end] {
			err := m.processor.process(ctx, entityID)
			if err != nil && isFatal(ctx, err) {
				return err
			}
			if err != nil {
				logger.Warn("entity failed", "entity", entityID, "err", err)
			}
			job.RecordProcessed(entityID, err)
		}

		if err := m.jobs.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("persist progress: %w", err)
		}
		logger.Debug("batch done", "completed", job.Progress.Completed, "failed", job.Progress.Failed, "total", job.Progress.Total)
	}
	return nil
}

// CompleteJob marks a job completed. Per-entity failures do not prevent
// completion.
func (m *Manager) CompleteJob(ctx context.Context, jobID string) error {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = core.JobStatusCompleted
	job.CompletedAt = m.now()
	if err := m.jobs.UpdateJob(ctx, job); err != nil {
		return err
	}

	m.logger.Info("job completed", "job", jobID, "completed", job.Progress.Completed, "failed", job.Progress.Failed)
	return nil
}

// FailJob records a job-level failure. While the job has retries left it is
// rescheduled with exponential backoff in the retrying state; otherwise it
// becomes failed. Returns the resulting status.
func (m *Manager) FailJob(ctx context.Context, jobID string, cause error) (core.JobStatus, error) {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}

	now := m.now()
	job.RecordAttemptFailure(cause)

	if job.Attempts <= job.Config.RetryCount {
		delay := m.backoff(job.Attempts)
		job.Status = core.JobStatusRetrying
		job.ScheduledAt = now.Add(delay)
		m.logger.Warn("job failed, retrying", "job", jobID, "attempt", job.Attempts, "retry_in", delay, "err", cause)
	} else {
		job.Status = core.JobStatusFailed
		job.CompletedAt = now
		m.logger.Error("job failed", "job", jobID, "attempts", job.Attempts, "err", cause)
	}

	if err := m.jobs.UpdateJob(ctx, job); err != nil {
		return "", err
	}
	return job.Status, nil
}

// backoff returns base * 2^(attempt-1).
func (m *Manager) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Cap the shift so the duration cannot overflow
	shift := min(attempt-1, 16)
	return m.retryBaseDelay << shift
}

// Reap deletes completed and failed jobs scheduled before cutoff.
func (m *Manager) Reap(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := m.jobs.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info("reaped jobs", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// GetJob returns a job with its current status and progress.
func (m *Manager) GetJob(ctx context.Context, jobID string) (*core.EmbeddingJob, error) {
	return m.jobs.GetJob(ctx, jobID)
}

// ListJobs returns jobs in a status, or every job if status is empty.
func (m *Manager) ListJobs(ctx context.Context, status core.JobStatus) ([]*core.EmbeddingJob, error) {
	return m.jobs.ListJobs(ctx, status)
}

// RunScheduled claims up to the per-run maximum of jobs and processes them
// one after another. A job whose processing fails goes to FailJob; every
// other claimed job is completed.
func (m *Manager) RunScheduled(ctx context.Context) (*RunSummary, error) {
	jobs, err := m.ClaimNextJobs(ctx, m.maxJobsPerRun)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}

	summary := &RunSummary{Claimed: len(jobs)}
	for i, job := range jobs {
		summary.JobIDs = append(summary.JobIDs, job.JobID)

		if i > 0 {
			if err := m.limiter.Wait(ctx); err != nil {
				return summary, err
			}
		}

		if procErr := m.ProcessBatch(ctx, job); procErr != nil {
			status, err := m.FailJob(context.WithoutCancel(ctx), job.JobID, procErr)
			if err != nil {
				m.logger.Error("could not record job failure", "job", job.JobID, "err", err)
				continue
			}
			if status == core.JobStatusRetrying {
				summary.Retrying++
			} else {
				summary.Failed++
			}
			continue
		}

		if err := m.CompleteJob(ctx, job.JobID); err != nil {
			m.logger.Error("could not complete job", "job", job.JobID, "err", err)
			continue
		}
		summary.Completed++
	}

	if summary.Claimed > 0 {
		m.logger.Info("scheduled run finished", "claimed", summary.Claimed, "completed", summary.Completed,
			"failed", summary.Failed, "retrying", summary.Retrying)
	}
	return summary, nil
}
