package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for persisted values. Field order is part of the storage
// format: append new fields at the end and never reorder.

var (
	EmbeddingRecordMUS = embeddingRecordMUS{}
	RecordMetadataMUS  = recordMetadataMUS{}
	EmbeddingJobMUS    = embeddingJobMUS{}
	JobProgressMUS     = jobProgressMUS{}
	JobConfigMUS       = jobConfigMUS{}
)

// timeMUS encodes a time as Unix microseconds; the zero time encodes as 0.
type timeMUS struct{}

func (timeMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(unixMicro(v), bs)
}

func (timeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	if us != 0 {
		v = time.UnixMicro(us).UTC()
	}
	return
}

func (timeMUS) Size(v time.Time) (size int) {
	return varint.Int64.Size(unixMicro(v))
}

func (timeMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// stringsMUS encodes a length-prefixed list of strings.
type stringsMUS struct{}

func (stringsMUS) Marshal(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func (stringsMUS) Unmarshal(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		err = ErrMalformedValue
		return
	}
	if length == 0 {
		return
	}
	v = make([]string, length)
	var n1 int
	for i := range v {
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (stringsMUS) Size(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return
}

func (stringsMUS) Skip(bs []byte) (n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 {
		err = ErrMalformedValue
		return
	}
	var n1 int
	for i := 0; i < length; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

// vectorMUS encodes a length-prefixed float32 vector with fixed-width elements.
type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length*4 > len(bs)-n {
		err = ErrMalformedValue
		return
	}
	if length == 0 {
		return
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

func (vectorMUS) Skip(bs []byte) (n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length*4 > len(bs)-n {
		err = ErrMalformedValue
		return
	}
	n += length * 4
	return
}

type recordMetadataMUS struct{}

func (recordMetadataMUS) Marshal(v RecordMetadata, bs []byte) (n int) {
	n = ord.String.Marshal(v.Jurisdiction, bs)
	n += ord.String.Marshal(v.TopicKey, bs[n:])
	n += varint.Int.Marshal(v.ContentLength, bs[n:])
	n += ord.String.Marshal(v.ProcessingMethod, bs[n:])
	return
}

func (recordMetadataMUS) Unmarshal(bs []byte) (v RecordMetadata, n int, err error) {
	v.Jurisdiction, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.TopicKey, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ContentLength, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ProcessingMethod, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (recordMetadataMUS) Size(v RecordMetadata) (size int) {
	size = ord.String.Size(v.Jurisdiction)
	size += ord.String.Size(v.TopicKey)
	size += varint.Int.Size(v.ContentLength)
	return size + ord.String.Size(v.ProcessingMethod)
}

func (recordMetadataMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}

type embeddingRecordMUS struct{}

func (embeddingRecordMUS) Marshal(v EmbeddingRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.EntityID, bs)
	n += ord.String.Marshal(string(v.EntityType), bs[n:])
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += varint.Int.Marshal(v.ChunkIndex, bs[n:])
	n += varint.Int.Marshal(v.TotalChunks, bs[n:])
	n += vectorMUS{}.Marshal(v.Vector, bs[n:])
	n += ord.String.Marshal(v.EmbeddingModel, bs[n:])
	n += varint.Int.Marshal(v.Dimensions, bs[n:])
	n += RecordMetadataMUS.Marshal(v.Metadata, bs[n:])
	n += timeMUS{}.Marshal(v.CreatedAt, bs[n:])
	n += timeMUS{}.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (embeddingRecordMUS) Unmarshal(bs []byte) (v EmbeddingRecord, n int, err error) {
	v.EntityID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1         int
		entityType string
	)
	entityType, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EntityType = EntityType(entityType)
	v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TotalChunks, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = vectorMUS{}.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EmbeddingModel, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Dimensions, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = RecordMetadataMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = timeMUS{}.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS{}.Unmarshal(bs[n:])
	n += n1
	return
}

func (embeddingRecordMUS) Size(v EmbeddingRecord) (size int) {
	size = ord.String.Size(v.EntityID)
	size += ord.String.Size(string(v.EntityType))
	size += ord.String.Size(v.ContentHash)
	size += ord.String.Size(v.Content)
	size += varint.Int.Size(v.ChunkIndex)
	size += varint.Int.Size(v.TotalChunks)
	size += vectorMUS{}.Size(v.Vector)
	size += ord.String.Size(v.EmbeddingModel)
	size += varint.Int.Size(v.Dimensions)
	size += RecordMetadataMUS.Size(v.Metadata)
	size += timeMUS{}.Size(v.CreatedAt)
	return size + timeMUS{}.Size(v.UpdatedAt)
}

type jobProgressMUS struct{}

func (jobProgressMUS) Marshal(v JobProgress, bs []byte) (n int) {
	n = varint.Int.Marshal(v.Total, bs)
	n += varint.Int.Marshal(v.Completed, bs[n:])
	n += varint.Int.Marshal(v.Failed, bs[n:])
	n += stringsMUS{}.Marshal(v.Errors, bs[n:])
	return
}

func (jobProgressMUS) Unmarshal(bs []byte) (v JobProgress, n int, err error) {
	v.Total, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Completed, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Failed, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Errors, n1, err = stringsMUS{}.Unmarshal(bs[n:])
	n += n1
	return
}

func (jobProgressMUS) Size(v JobProgress) (size int) {
	size = varint.Int.Size(v.Total)
	size += varint.Int.Size(v.Completed)
	size += varint.Int.Size(v.Failed)
	return size + stringsMUS{}.Size(v.Errors)
}

type jobConfigMUS struct{}

func (jobConfigMUS) Marshal(v JobConfig, bs []byte) (n int) {
	n = varint.Int.Marshal(v.BatchSize, bs)
	n += varint.Int.Marshal(v.RetryCount, bs[n:])
	n += ord.String.Marshal(string(v.Priority), bs[n:])
	return
}

func (jobConfigMUS) Unmarshal(bs []byte) (v JobConfig, n int, err error) {
	v.BatchSize, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1       int
		priority string
	)
	v.RetryCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	priority, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	v.Priority = Priority(priority)
	return
}

func (jobConfigMUS) Size(v JobConfig) (size int) {
	size = varint.Int.Size(v.BatchSize)
	size += varint.Int.Size(v.RetryCount)
	return size + ord.String.Size(string(v.Priority))
}

type embeddingJobMUS struct{}

func (embeddingJobMUS) Marshal(v EmbeddingJob, bs []byte) (n int) {
	n = ord.String.Marshal(v.JobID, bs)
	n += ord.String.Marshal(string(v.JobType), bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += stringsMUS{}.Marshal(v.EntityIDs, bs[n:])
	n += JobProgressMUS.Marshal(v.Progress, bs[n:])
	n += JobConfigMUS.Marshal(v.Config, bs[n:])
	n += varint.Int.Marshal(v.Attempts, bs[n:])
	n += timeMUS{}.Marshal(v.ScheduledAt, bs[n:])
	n += timeMUS{}.Marshal(v.StartedAt, bs[n:])
	n += timeMUS{}.Marshal(v.CompletedAt, bs[n:])
	return
}

func (embeddingJobMUS) Unmarshal(bs []byte) (v EmbeddingJob, n int, err error) {
	v.JobID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1      int
		jobType string
		status  string
	)
	jobType, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.JobType = JobType(jobType)
	status, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status = JobStatus(status)
	v.EntityIDs, n1, err = stringsMUS{}.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Progress, n1, err = JobProgressMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Config, n1, err = JobConfigMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Attempts, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ScheduledAt, n1, err = timeMUS{}.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.StartedAt, n1, err = timeMUS{}.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CompletedAt, n1, err = timeMUS{}.Unmarshal(bs[n:])
	n += n1
	return
}

func (embeddingJobMUS) Size(v EmbeddingJob) (size int) {
	size = ord.String.Size(v.JobID)
	size += ord.String.Size(string(v.JobType))
	size += ord.String.Size(string(v.Status))
	size += stringsMUS{}.Size(v.EntityIDs)
	size += JobProgressMUS.Size(v.Progress)
	size += JobConfigMUS.Size(v.Config)
	size += varint.Int.Size(v.Attempts)
	size += timeMUS{}.Size(v.ScheduledAt)
	size += timeMUS{}.Size(v.StartedAt)
	return size + timeMUS{}.Size(v.CompletedAt)
}
