package remote

import "errors"

// Sentinel errors for lineup service calls.
var (
	// ErrUnavailable covers transport failures, 5xx responses and an open
	// circuit breaker.
	ErrUnavailable = errors.New("lineup service unavailable")
	ErrStale       = errors.New("placement version is stale")
	ErrNotFound    = errors.New("not found")
	ErrRejected    = errors.New("request rejected")
	ErrDecode      = errors.New("malformed response")
	ErrInvalidURL  = errors.New("invalid base url")
)
