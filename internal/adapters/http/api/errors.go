package api

import "errors"

// ErrBackpressure is returned by passage submission when the intake
// queue is full or closed and the reading cannot be accepted.
var ErrBackpressure = errors.New("intake backpressure")
