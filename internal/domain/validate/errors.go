package validate

import "errors"

// Sentinel kinds for lookup errors.
var (
	// ErrNotFound is returned by lookups when no record exists for the
	// requested key.
	ErrNotFound = errors.New("not found")
)
