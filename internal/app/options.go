package service

import (
	"time"

	"github.com/okian/formation/internal/adapters/repository"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBackend selects the repository backend: config.BackendMemory or
// config.BackendRedis.
func WithBackend(backend string) Option {
	return func(s *Service) {
		if backend != "" {
			s.backend = backend
		}
	}
}

// WithRedis sets the redis address and key prefix for the redis backend.
func WithRedis(addr, prefix string) Option {
	return func(s *Service) {
		s.redisAddr = addr
		if prefix != "" {
			s.redisPrefix = prefix
		}
	}
}

// WithSeedFile loads lineups from a YAML or JSON file at Start.
func WithSeedFile(path string) Option {
	return func(s *Service) {
		s.seedFile = path
	}
}

// WithSeedLineups stores lineups at Start, before the seed file.
func WithSeedLineups(lineups ...model.Lineup) Option {
	return func(s *Service) {
		s.seedLineups = append(s.seedLineups, lineups...)
	}
}

// WithStore uses an already opened repository and ignores the backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// EditorOption applies a configuration option to the Editor.
type EditorOption func(*Editor)

// WithSaveQueueSize bounds the number of saves waiting for a worker.
func WithSaveQueueSize(size int) EditorOption {
	return func(e *Editor) {
		if size > 0 {
			e.queueSize = size
		}
	}
}

// WithSaveWorkers sets the number of save workers.
func WithSaveWorkers(count int) EditorOption {
	return func(e *Editor) {
		if count > 0 {
			e.workerCount = count
		}
	}
}

// WithSaveTimeout bounds one remote save.
func WithSaveTimeout(d time.Duration) EditorOption {
	return func(e *Editor) {
		if d > 0 {
			e.saveTimeout = d
		}
	}
}

// WithClampOnRender controls whether stored out-of-range placements are
// drawn clamped to the pitch.
func WithClampOnRender(enabled bool) EditorOption {
	return func(e *Editor) {
		e.clampOnRender = enabled
	}
}

// WithOnChange registers fn to run whenever the editor's frame may have
// changed outside a pointer call, e.g. when a save result arrives.
func WithOnChange(fn func()) EditorOption {
	return func(e *Editor) {
		e.onChange = fn
	}
}

// WithEditorLogger sets a custom logger for the editor.
func WithEditorLogger(l logger.Logger) EditorOption {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}
