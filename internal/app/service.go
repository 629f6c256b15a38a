// Package service wires the lineup repository behind the HTTP API and the
// editor session behind the terminal UI.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/formation/internal/adapters/repository"
	"github.com/okian/formation/internal/config"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/internal/seed"
	"github.com/okian/formation/pkg/logger"
	"github.com/okian/formation/pkg/metrics"
)

// Service implements the API dependencies for the lineup service.
type Service struct {
	mu sync.RWMutex

	store repository.Store

	// Configuration
	backend     string
	redisAddr   string
	redisPrefix string
	seedFile    string
	seedLineups []model.Lineup

	started bool
	logger  logger.Logger
}

// New constructs a Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		backend:     config.BackendMemory,
		redisPrefix: "formation:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the repository and seeds it. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting lineup service...", logger.String("backend", s.backend))

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}

	if err := s.seed(ctx); err != nil {
		_ = s.store.Close()
		s.store = nil
		return err
	}

	s.started = true
	s.logger.Info(ctx, "lineup service started", logger.Int("placements", s.store.Count(ctx)))
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.backend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil
	case config.BackendRedis:
		store, err := repository.DialRedis(ctx, s.redisAddr,
			repository.WithKeyPrefix(s.redisPrefix),
			repository.WithRedisLogger(s.logger.Named("redis")),
		)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.backend)
	}
}

func (s *Service) seed(ctx context.Context) error {
	lineups := s.seedLineups
	if s.seedFile != "" {
		loaded, err := seed.Load(ctx, s.seedFile)
		if err != nil {
			return err
		}
		lineups = append(append([]model.Lineup(nil), lineups...), loaded...)
	}
	for _, l := range lineups {
		if err := s.store.PutLineup(ctx, l); err != nil {
			return fmt.Errorf("seed team %s: %w", l.TeamID, err)
		}
	}
	if len(lineups) > 0 {
		s.logger.Info(ctx, "lineups seeded", logger.Int("teams", len(lineups)))
	}
	return nil
}

// Stop closes the repository.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping lineup service...")
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "error closing store", logger.Error(err))
	}
	s.store = nil
	s.started = false
	s.logger.Info(context.Background(), "lineup service stopped")
}

func (s *Service) repo() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Lineup returns the stored lineup of teamID.
func (s *Service) Lineup(ctx context.Context, teamID string) (model.Lineup, error) {
	store, err := s.repo()
	if err != nil {
		return model.Lineup{}, err
	}
	return store.Lineup(ctx, teamID)
}

// SavePlacement writes one player's placement if version is newer than the
// stored one.
func (s *Service) SavePlacement(ctx context.Context, playerID string, x, y float64, version uint64) (model.PlayerPlacement, error) {
	store, err := s.repo()
	if err != nil {
		return model.PlayerPlacement{}, err
	}
	return store.SavePlacement(ctx, playerID, x, y, version)
}

// Teams lists the stored team IDs.
func (s *Service) Teams(ctx context.Context) ([]string, error) {
	store, err := s.repo()
	if err != nil {
		return nil, err
	}
	return store.Teams(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started": s.started,
		"backend": s.backend,
	}

	if s.started {
		placements := s.store.Count(ctx)
		stats["placements"] = placements
		if teams, err := s.store.Teams(ctx); err == nil {
			stats["teams"] = len(teams)
		}
		metrics.UpdatePlayersTracked(placements)
	}

	return stats
}
