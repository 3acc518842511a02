package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrRepositoryRequired is returned when no embedding repository is given.
	ErrRepositoryRequired = errors.New("embedding repository required")

	// ErrEmbedderRequired is returned when no embedder is given.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCountMismatch is returned when the provider returns a different
	// number of vectors than texts sent.
	ErrCountMismatch = errors.New("embedding count mismatch")

	// ErrUnexpectedDimensions is returned when the provider's vectors do not
	// match the configured width. Writing them would mix widths in the store.
	ErrUnexpectedDimensions = errors.New("unexpected embedding dimensions")
)
