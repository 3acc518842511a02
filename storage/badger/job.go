package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
//
// Every job has a primary key, a status index entry and a schedule index
// entry. Jobs in a claimable status also sit in the claim queue, whose key
// order is the claim order.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

func newJobRepository(backend *Backend) *JobRepository {
	return &JobRepository{backend: backend}
}

// NewJobRepository creates a new job repository on top of backend.
func NewJobRepository(backend *Backend) (storage.JobRepository, error) {
	return newJobRepository(backend), nil
}

// Close releases resources. JobRepository has no resources to release.
func (r *JobRepository) Close() error {
	return nil
}

// CreateJob persists a new job.
func (r *JobRepository) CreateJob(ctx context.Context, job *core.EmbeddingJob) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}

	return r.backend.Update(func(tx *badger.Txn) error {
		existing, err := getValue(tx, makeJobKey(job.JobID), storage.UnmarshalJob)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}
		return putJob(tx, job)
	})
}

// GetJob retrieves a job by ID.
func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*core.EmbeddingJob, error) {
	var result *core.EmbeddingJob
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		result, err = getValue(tx, makeJobKey(jobID), storage.UnmarshalJob)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// UpdateJob overwrites a stored job and moves its index entries.
func (r *JobRepository) UpdateJob(ctx context.Context, job *core.EmbeddingJob) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}

	return r.backend.Update(func(tx *badger.Txn) error {
		existing, err := getValue(tx, makeJobKey(job.JobID), storage.UnmarshalJob)
		if err != nil {
			return err
		}
		if existing == nil {
			return storage.ErrNotFound
		}
		if existing.Status.IsTerminal() {
			return storage.ErrInvalidTransition
		}
		if err := deleteJobIndexes(tx, existing); err != nil {
			return err
		}
		return putJob(tx, job)
	})
}

// ClaimJobs moves up to max claimable jobs to processing in one transaction.
func (r *JobRepository) ClaimJobs(ctx context.Context, max int, now time.Time) ([]*core.EmbeddingJob, error) {
	if max <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var claimed []*core.EmbeddingJob
	err := r.backend.Update(func(tx *badger.Txn) error {
		// Replayed on conflict, so start clean
		claimed = claimed[:0]

		candidates, err := r.claimCandidates(tx, max, now)
		if err != nil {
			return err
		}

		for _, job := range candidates {
			if err := deleteJobIndexes(tx, job); err != nil {
				return err
			}
			job.Status = core.JobStatusProcessing
			job.StartedAt = now
			if err := putJob(tx, job); err != nil {
				return err
			}
			claimed = append(claimed, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// claimCandidates walks the claim queue and returns the jobs to claim.
// The iterator is closed before any write happens.
func (r *JobRepository) claimCandidates(tx *badger.Txn, max int, now time.Time) ([]*core.EmbeddingJob, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(jobQueuePrefix)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	var ids []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		id, err := jobIDFromQueueKey(iter.Item().Key())
		if err != nil {
			iter.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	iter.Close()

	var candidates []*core.EmbeddingJob
	for _, id := range ids {
		if len(candidates) == max {
			break
		}
		job, err := getValue(tx, makeJobKey(id), storage.UnmarshalJob)
		if err != nil {
			return nil, err
		}
		if job == nil || !job.Status.IsClaimable() {
			continue
		}
		// Waiting out a retry backoff
		if job.ScheduledAt.After(now) {
			continue
		}
		candidates = append(candidates, job)
	}
	return candidates, nil
}

// ListJobs returns jobs in the given status, or all jobs if status is empty.
// Results are in job ID order, which is creation order for UUIDv7 IDs.
func (r *JobRepository) ListJobs(ctx context.Context, status core.JobStatus) ([]*core.EmbeddingJob, error) {
	if status != "" {
		if err := core.ValidateJobStatus(status); err != nil {
			return nil, err
		}
	}

	results := []*core.EmbeddingJob{}
	err := r.backend.View(func(tx *badger.Txn) error {
		if status == "" {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(jobPrefix)
			iter := tx.NewIterator(opts)
			defer iter.Close()

			for iter.Rewind(); iter.Valid(); iter.Next() {
				var job *core.EmbeddingJob
				err := iter.Item().Value(func(val []byte) error {
					var err error
					job, err = storage.UnmarshalJob(val)
					return err
				})
				if err != nil {
					return err
				}
				results = append(results, job)
			}
			return nil
		}

		prefix := makePartialJobStatusKey(status)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		var ids []string
		for iter.Rewind(); iter.Valid(); iter.Next() {
			ids = append(ids, string(iter.Item().Key()[len(prefix):]))
		}
		iter.Close()

		for _, id := range ids {
			job, err := getValue(tx, makeJobKey(id), storage.UnmarshalJob)
			if err != nil {
				return err
			}
			if job != nil {
				results = append(results, job)
			}
		}
		return nil
	})
	return results, err
}

// DeleteTerminalBefore deletes completed and failed jobs scheduled before cutoff.
func (r *JobRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	err := r.backend.Update(func(tx *badger.Txn) error {
		deleted = 0
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobSchedulePrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var ids []string
		for iter.Rewind(); iter.Valid(); iter.Next() {
			scheduledAt, id, err := parseJobScheduleKey(iter.Item().Key())
			if err != nil {
				iter.Close()
				return err
			}
			// Schedule index is time ordered
			if !scheduledAt.Before(cutoff) {
				break
			}
			ids = append(ids, id)
		}
		iter.Close()

		for _, id := range ids {
			job, err := getValue(tx, makeJobKey(id), storage.UnmarshalJob)
			if err != nil {
				return err
			}
			if job == nil || !job.Status.IsTerminal() {
				continue
			}
			if err := deleteJobIndexes(tx, job); err != nil {
				return err
			}
			if err := tx.Delete(makeJobKey(id)); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// putJob writes a job and the index entries for its current state.
func putJob(tx *badger.Txn, job *core.EmbeddingJob) error {
	if err := tx.Set(makeJobKey(job.JobID), storage.MarshalJob(job)); err != nil {
		return err
	}
	if err := tx.Set(makeJobStatusKey(job.Status, job.JobID), nil); err != nil {
		return err
	}
	if err := tx.Set(makeJobScheduleKey(job.ScheduledAt, job.JobID), nil); err != nil {
		return err
	}
	if job.Status.IsClaimable() {
		key := makeJobQueueKey(job.Config.Priority, job.ScheduledAt, job.JobID)
		if err := tx.Set(key, nil); err != nil {
			return err
		}
	}
	return nil
}

// deleteJobIndexes removes the index entries written for a stored job state.
func deleteJobIndexes(tx *badger.Txn, job *core.EmbeddingJob) error {
	if err := tx.Delete(makeJobStatusKey(job.Status, job.JobID)); err != nil {
		return err
	}
	if err := tx.Delete(makeJobScheduleKey(job.ScheduledAt, job.JobID)); err != nil {
		return err
	}
	if job.Status.IsClaimable() {
		key := makeJobQueueKey(job.Config.Priority, job.ScheduledAt, job.JobID)
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
