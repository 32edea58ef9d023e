package repository

import "errors"

// Sentinel kinds for timeline store errors.
var (
	ErrNotFound = errors.New("timeline not found")
)
