package storage

import (
	"context"
	"time"

	"github.com/poiesic/citare/core"
)

// MaxPageSize is the hard cap on records returned by a single GetPage call.
const MaxPageSize = 200

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// EmbeddingRepository stores embedding records keyed by content hash.
type EmbeddingRepository interface {
	Repository

	// Upsert stores records. A record whose ContentHash already exists is
	// updated in place: vector, model, dimensions, metadata and UpdatedAt are
	// overwritten and CreatedAt is preserved. Records are validated first.
	Upsert(ctx context.Context, records ...*core.EmbeddingRecord) error

	// ReplaceEntity stores records as the complete chunk set of entityID.
	// Previously stored chunks of the entity that are not part of the new set
	// are removed atomically. Returns the number of records removed.
	ReplaceEntity(ctx context.Context, entityID string, records ...*core.EmbeddingRecord) (int, error)

	// GetByHash retrieves a record by content hash.
	// Returns ErrNotFound if no record exists.
	GetByHash(ctx context.Context, contentHash string) (*core.EmbeddingRecord, error)

	// GetByEntity returns all chunks of an entity ordered by ChunkIndex.
	// Returns an empty slice if the entity has no records.
	GetByEntity(ctx context.Context, entityID string) ([]*core.EmbeddingRecord, error)

	// GetPage reads up to limit records (capped at MaxPageSize) in storage
	// order and then applies filters to that page. There is no metadata
	// index, so matching records outside the page are not visible.
	GetPage(ctx context.Context, filters core.Filters, limit int) ([]*core.EmbeddingRecord, error)

	// ForEach calls fn with successive batches of every stored record.
	// Iteration stops on the first error from fn.
	ForEach(ctx context.Context, batchSize int, fn func([]*core.EmbeddingRecord) error) error

	// DeleteByEntity removes every record of an entity and returns the count.
	DeleteByEntity(ctx context.Context, entityID string) (int, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

// JobRepository stores embedding jobs and implements the claim queue.
type JobRepository interface {
	Repository

	// CreateJob persists a new job. The job is validated first.
	// Returns ErrDuplicateKey if the JobID is already in use.
	CreateJob(ctx context.Context, job *core.EmbeddingJob) error

	// GetJob retrieves a job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, jobID string) (*core.EmbeddingJob, error)

	// UpdateJob overwrites a stored job and maintains its indexes.
	// Returns ErrNotFound if the job doesn't exist and ErrInvalidTransition
	// if the stored job is already terminal.
	UpdateJob(ctx context.Context, job *core.EmbeddingJob) error

	// ClaimJobs atomically moves up to max claimable jobs to processing,
	// ordered by priority rank descending then ScheduledAt ascending.
	// Jobs scheduled after now are skipped.
	ClaimJobs(ctx context.Context, max int, now time.Time) ([]*core.EmbeddingJob, error)

	// ListJobs returns jobs in the given status, or all jobs if status is empty.
	ListJobs(ctx context.Context, status core.JobStatus) ([]*core.EmbeddingJob, error)

	// DeleteTerminalBefore deletes completed and failed jobs scheduled
	// before cutoff and returns the count.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}
