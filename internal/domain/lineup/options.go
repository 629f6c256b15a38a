package lineup

import (
	"time"

	"github.com/okian/formation/internal/domain/sequence"
	"github.com/okian/formation/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp save requests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRequestIDs overrides the generator for save request IDs.
func WithRequestIDs(next func() string) Option {
	return func(s *Store) {
		if next != nil {
			s.nextID = next
		}
	}
}

// WithTracker sets the version tracker used to filter stale completions.
func WithTracker(t sequence.Tracker) Option {
	return func(s *Store) {
		if t != nil {
			s.versions = t
		}
	}
}
