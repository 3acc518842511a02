package citare

import "errors"

var (
	// ErrEmptyQuery is returned by SearchTopK for a blank query.
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrProviderRequired is returned by operations that need a real
	// embedding provider when none is configured.
	ErrProviderRequired = errors.New("embedding provider required")
)
