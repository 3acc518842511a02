package core

import (
	"errors"
	"testing"
)

func TestValidateRecord(t *testing.T) {
	valid := func() *EmbeddingRecord {
		return &EmbeddingRecord{
			EntityID:    "r1",
			EntityType:  EntityTypeRule,
			ContentHash: "abc",
			Vector:      []float32{0.1, 0.2},
			Dimensions:  2,
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *EmbeddingRecord)
		nilRec  bool
		wantErr error
	}{
		{name: "valid record", mutate: func(r *EmbeddingRecord) {}},
		{name: "nil record", nilRec: true, wantErr: ErrInvalidRecord},
		{name: "empty entity id", mutate: func(r *EmbeddingRecord) { r.EntityID = "" }, wantErr: ErrEmptyEntityID},
		{name: "empty hash", mutate: func(r *EmbeddingRecord) { r.ContentHash = "" }, wantErr: ErrEmptyContentHash},
		{name: "unknown entity type", mutate: func(r *EmbeddingRecord) { r.EntityType = "memo" }, wantErr: ErrInvalidEntityType},
		{name: "dimension mismatch", mutate: func(r *EmbeddingRecord) { r.Dimensions = 3 }, wantErr: ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *EmbeddingRecord
			if !tt.nilRec {
				rec = valid()
				tt.mutate(rec)
			}
			err := ValidateRecord(rec)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRecord() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("ValidateRecord() error should wrap ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestValidateJob(t *testing.T) {
	valid := func() *EmbeddingJob {
		return &EmbeddingJob{
			JobID:     "j1",
			JobType:   JobTypeGenerateNew,
			Status:    JobStatusPending,
			EntityIDs: []string{"r1", "r2"},
			Progress:  JobProgress{Total: 2},
			Config:    JobConfig{BatchSize: 10, Priority: PriorityHigh},
		}
	}

	tests := []struct {
		name    string
		mutate  func(j *EmbeddingJob)
		wantErr error
	}{
		{name: "valid job", mutate: func(j *EmbeddingJob) {}},
		{name: "no entities", mutate: func(j *EmbeddingJob) { j.EntityIDs = nil }, wantErr: ErrEmptyEntityIDs},
		{name: "blank entity", mutate: func(j *EmbeddingJob) { j.EntityIDs = []string{"r1", ""} }, wantErr: ErrEmptyEntityID},
		{name: "bad job type", mutate: func(j *EmbeddingJob) { j.JobType = "reindex" }, wantErr: ErrInvalidJobType},
		{name: "bad status", mutate: func(j *EmbeddingJob) { j.Status = "paused" }, wantErr: ErrInvalidJobStatus},
		{name: "bad priority", mutate: func(j *EmbeddingJob) { j.Config.Priority = "urgent" }, wantErr: ErrInvalidPriority},
		{name: "progress overflow", mutate: func(j *EmbeddingJob) { j.Progress.Completed = 2; j.Progress.Failed = 1 }, wantErr: ErrProgressOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := valid()
			tt.mutate(job)
			err := ValidateJob(job)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateJob() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateJob() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
