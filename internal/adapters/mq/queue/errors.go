package queue

import "errors"

// Sentinel errors for enqueue failures.
var (
	ErrClosed = errors.New("save queue closed")
	ErrFull   = errors.New("save queue full")
)
