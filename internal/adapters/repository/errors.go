package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrStaleVersion     = errors.New("stale placement version")
	ErrInvalidPlacement = errors.New("invalid placement")
)
