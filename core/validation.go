// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
)

// ValidateRecord validates an EmbeddingRecord before it is persisted.
//
// Validation rules:
//   - EntityID and ContentHash must not be empty
//   - EntityType must be Rule or Report
//   - Vector length must equal Dimensions
//
// NOT validated:
//   - Content (stored for snippets, may be empty for synthetic records)
//   - Metadata (every field is optional)
func ValidateRecord(record *EmbeddingRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.EntityID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyEntityID)
	}

	if record.ContentHash == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyContentHash)
	}

	if err := ValidateEntityType(record.EntityType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if len(record.Vector) != record.Dimensions {
		return fmt.Errorf("%w: %w: %d != %d", ErrInvalidRecord, ErrDimensionMismatch, len(record.Vector), record.Dimensions)
	}

	return nil
}

// ValidateJob validates an EmbeddingJob before it is persisted.
func ValidateJob(job *EmbeddingJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if len(job.EntityIDs) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyEntityIDs)
	}

	for _, id := range job.EntityIDs {
		if id == "" {
			return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyEntityID)
		}
	}

	if err := ValidateJobType(job.JobType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	if err := ValidateJobStatus(job.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	if err := ValidatePriority(job.Config.Priority); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	p := job.Progress
	if p.Completed < 0 || p.Failed < 0 || p.Completed+p.Failed > p.Total {
		return fmt.Errorf("%w: %w: %d+%d > %d", ErrInvalidJob, ErrProgressOverflow, p.Completed, p.Failed, p.Total)
	}

	return nil
}

// ValidateEntityType validates that an EntityType has a known value.
func ValidateEntityType(t EntityType) error {
	if t != EntityTypeRule && t != EntityTypeReport {
		return fmt.Errorf("%w: value %q", ErrInvalidEntityType, t)
	}
	return nil
}

// ValidateJobType validates that a JobType has a known value.
func ValidateJobType(t JobType) error {
	switch t {
	case JobTypeImportExisting, JobTypeGenerateNew, JobTypeUpdateExisting, JobTypeBatchProcess:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidJobType, t)
}

// ValidateJobStatus validates that a JobStatus has a known value.
func ValidateJobStatus(s JobStatus) error {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusRetrying:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidJobStatus, s)
}

// ValidatePriority validates that a Priority has a known value.
func ValidatePriority(p Priority) error {
	if p.Rank() == 0 {
		return fmt.Errorf("%w: value %q", ErrInvalidPriority, p)
	}
	return nil
}
