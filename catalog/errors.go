package catalog

import (
	"errors"
	"fmt"

	"github.com/poiesic/citare/storage"
)

var (
	// ErrNotFound is returned when no rule or report has the requested id.
	ErrNotFound = fmt.Errorf("catalog: %w", storage.ErrNotFound)

	// ErrInvalidEntry is returned when an entry is missing its id or body.
	ErrInvalidEntry = errors.New("catalog entry requires an id and a body")
)
