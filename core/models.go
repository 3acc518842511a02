package core

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// MockModelTag marks embeddings produced by the deterministic fallback generator.
// Records carrying this tag are candidates for re-embedding with a real provider.
const MockModelTag = "mock-lcg-v1"

// ProcessingMethodAuto is recorded on records written by the job pipeline.
const ProcessingMethodAuto = "auto_generated"

// ContentHash returns a deterministic fingerprint for a chunk of entity content.
// Entity identity and chunk position are part of the digest so identical
// boilerplate in two documents yields two records.
func ContentHash(entityType EntityType, entityID string, chunkIndex int, content string) string {
	h, _ := blake2b.New(16, nil) // 128 bits
	h.Write([]byte(entityType))
	h.Write([]byte{0})
	h.Write([]byte(entityID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(chunkIndex)))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// EntityType identifies the kind of domain document an embedding belongs to.
type EntityType string

const (
	EntityTypeRule   EntityType = "rule"
	EntityTypeReport EntityType = "report"
)

// RecordMetadata carries optional descriptive fields used for filtering.
type RecordMetadata struct {
	Jurisdiction     string
	TopicKey         string
	ContentLength    int
	ProcessingMethod string
}

// EmbeddingRecord is a single embedded chunk of a Rule or Report.
// At most one record exists per ContentHash.
type EmbeddingRecord struct {
	EntityID       string
	EntityType     EntityType
	ContentHash    string
	Content        string
	ChunkIndex     int
	TotalChunks    int
	Vector         []float32
	EmbeddingModel string // MockModelTag for fallback vectors
	Dimensions     int
	Metadata       RecordMetadata
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsFallback reports whether the record was embedded by the fallback generator.
func (r *EmbeddingRecord) IsFallback() bool {
	return r.EmbeddingModel == MockModelTag
}

// Filters narrows a candidate set by equality. Zero values match everything.
type Filters struct {
	EntityType   EntityType
	Jurisdiction string
	TopicKey     string
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f.EntityType == "" && f.Jurisdiction == "" && f.TopicKey == ""
}

// Match reports whether the record satisfies every filter that is set.
func (f Filters) Match(r *EmbeddingRecord) bool {
	if f.EntityType != "" && r.EntityType != f.EntityType {
		return false
	}
	if f.Jurisdiction != "" && r.Metadata.Jurisdiction != f.Jurisdiction {
		return false
	}
	if f.TopicKey != "" && r.Metadata.TopicKey != f.TopicKey {
		return false
	}
	return true
}

// JobType describes why an embedding job was created.
type JobType string

const (
	JobTypeImportExisting JobType = "import_existing"
	JobTypeGenerateNew    JobType = "generate_new"
	JobTypeUpdateExisting JobType = "update_existing"
	JobTypeBatchProcess   JobType = "batch_process"
)

// JobStatus is the lifecycle state of an embedding job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsClaimable reports whether a job in this state may be claimed.
func (s JobStatus) IsClaimable() bool {
	return s == JobStatusPending || s == JobStatusRetrying
}

// Priority orders pending jobs at claim time.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the numeric claim rank of a priority. Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// JobProgress counts processed entities.
// Completed + Failed never exceeds Total.
type JobProgress struct {
	Total     int
	Completed int
	Failed    int
	Errors    []string
}

// JobConfig holds per-job processing settings.
type JobConfig struct {
	BatchSize  int
	RetryCount int // job-level re-attempts after a fatal failure
	Priority   Priority
}

// EmbeddingJob is a batch of entities scheduled for embedding.
type EmbeddingJob struct {
	JobID       string
	JobType     JobType
	Status      JobStatus
	EntityIDs   []string
	Progress    JobProgress
	Config      JobConfig
	Attempts    int
	ScheduledAt time.Time
	StartedAt   time.Time // zero until claimed
	CompletedAt time.Time // zero until terminal
}

// attemptErrorPrefix marks job-level failures in Progress.Errors.
const attemptErrorPrefix = "attempt "

// RecordAttemptFailure counts a job-level failure and appends it to the
// error list as "attempt N: cause".
func (j *EmbeddingJob) RecordAttemptFailure(cause error) {
	j.Attempts++
	j.Progress.Errors = append(j.Progress.Errors, fmt.Sprintf("%s%d: %v", attemptErrorPrefix, j.Attempts, cause))
}

// ResetProgress restarts the entity counts for a new attempt. Per-entity
// errors of earlier attempts are dropped and job-level failures are kept, so
// the entity errors always number Failed.
func (j *EmbeddingJob) ResetProgress() {
	j.Progress.Total = len(j.EntityIDs)
	j.Progress.Completed = 0
	j.Progress.Failed = 0
	kept := j.Progress.Errors[:0]
	for _, e := range j.Progress.Errors {
		if strings.HasPrefix(e, attemptErrorPrefix) {
			kept = append(kept, e)
		}
	}
	j.Progress.Errors = kept
}

// RecordProcessed records the outcome of one entity. A non-nil err counts
// as a failure and is appended to the error list.
func (j *EmbeddingJob) RecordProcessed(entityID string, err error) {
	if j.Progress.Completed+j.Progress.Failed >= j.Progress.Total {
		return
	}
	if err != nil {
		j.Progress.Failed++
		j.Progress.Errors = append(j.Progress.Errors, entityID+": "+err.Error())
		return
	}
	j.Progress.Completed++
}
