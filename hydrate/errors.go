package hydrate

import "errors"

// ErrInvalidPoolSize is returned when the lookup pool size is not positive.
var ErrInvalidPoolSize = errors.New("pool size must be positive")
