package seed

import "errors"

var (
	// ErrLoadSeed is returned when a seed file cannot be read or parsed.
	ErrLoadSeed = errors.New("seed: load failed")
	// ErrUnsupportedFormat is returned for files that are neither YAML nor JSON.
	ErrUnsupportedFormat = errors.New("seed: unsupported file format")
	// ErrInvalidSeed is returned when a parsed lineup is unusable.
	ErrInvalidSeed = errors.New("seed: invalid lineup")
)
