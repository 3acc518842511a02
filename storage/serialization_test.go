package storage

import (
	"testing"
	"time"

	"github.com/poiesic/citare/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRecord(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name   string
		record *core.EmbeddingRecord
	}{
		{
			name: "minimal record",
			record: &core.EmbeddingRecord{
				EntityID:    "r1",
				EntityType:  core.EntityTypeRule,
				ContentHash: "h1",
			},
		},
		{
			name: "full record",
			record: &core.EmbeddingRecord{
				EntityID:       "rep-9",
				EntityType:     core.EntityTypeReport,
				ContentHash:    core.ContentHash(core.EntityTypeReport, "rep-9", 1, "Section 2"),
				Content:        "Section 2: données personnelles",
				ChunkIndex:     1,
				TotalChunks:    3,
				Vector:         []float32{-1, 0, 0.25, 1},
				EmbeddingModel: core.MockModelTag,
				Dimensions:     4,
				Metadata: core.RecordMetadata{
					Jurisdiction:     "eu",
					TopicKey:         "data_privacy",
					ContentLength:    31,
					ProcessingMethod: core.ProcessingMethodAuto,
				},
				CreatedAt: now,
				UpdatedAt: now.Add(time.Minute),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalRecord(tt.record)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalRecord(data)
			require.NoError(t, err)
			assert.Equal(t, tt.record, decoded)
		})
	}
}

func TestMarshalUnmarshalJob(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	job := &core.EmbeddingJob{
		JobID:     "0192b7a4-5c1e-7d3a-9f00-000000000001",
		JobType:   core.JobTypeGenerateNew,
		Status:    core.JobStatusProcessing,
		EntityIDs: []string{"r1", "r2", "r3"},
		Progress: core.JobProgress{
			Total:     3,
			Completed: 1,
			Failed:    1,
			Errors:    []string{"r2: not found"},
		},
		Config:      core.JobConfig{BatchSize: 2, RetryCount: 1, Priority: core.PriorityHigh},
		Attempts:    1,
		ScheduledAt: now,
		StartedAt:   now.Add(time.Second),
	}

	decoded, err := UnmarshalJob(MarshalJob(job))
	require.NoError(t, err)
	assert.Equal(t, job, decoded)
	assert.True(t, decoded.CompletedAt.IsZero(), "unset timestamps stay zero")
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalRecord([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalJob([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	// Truncated record
	data := MarshalRecord(&core.EmbeddingRecord{EntityID: "r1", ContentHash: "h", Vector: []float32{1, 2}})
	_, err = UnmarshalRecord(data[:len(data)-4])
	assert.Error(t, err)
}
