package config

import "errors"

// Sentinel errors returned by Load and Validate.
var (
	ErrInvalidConfig = errors.New("formation config invalid")
	ErrLoadConfig    = errors.New("formation config load failed")
)
