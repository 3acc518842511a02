package ingestion

import "errors"

var (
	// ErrJobRepositoryRequired is returned when a job repository is not provided.
	ErrJobRepositoryRequired = errors.New("job repository required")

	// ErrEmbeddingRepositoryRequired is returned when an embedding repository is not provided.
	ErrEmbeddingRepositoryRequired = errors.New("embedding repository required")

	// ErrContentSourceRequired is returned when a content source is not provided.
	ErrContentSourceRequired = errors.New("content source required")

	// ErrGeneratorRequired is returned when an embedding generator is not provided.
	ErrGeneratorRequired = errors.New("embedding generator required")

	// ErrRunnerRequired is returned when a scheduler has nothing to run.
	ErrRunnerRequired = errors.New("runner required")

	// ErrEmptyContent is recorded for an entity whose content is blank.
	ErrEmptyContent = errors.New("entity has no content")

	// ErrStoreFailure marks an embedding store error. It aborts the job
	// instead of being recorded against a single entity.
	ErrStoreFailure = errors.New("embedding store failure")
)
