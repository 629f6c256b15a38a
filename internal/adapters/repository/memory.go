package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/internal/domain/sequence"
	"github.com/okian/formation/pkg/metrics"
)

const backendMemory = "memory"

// snapshot is an immutable view of every lineup. Reads never take the
// write lock.
type snapshot struct {
	lineups map[string]model.Lineup
	teams   []string
	count   int
}

// MemoryStore keeps lineups in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	lineups  map[string]model.Lineup
	teamOf   map[string]string
	versions sequence.Tracker

	snap atomic.Pointer[snapshot]
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		lineups:  make(map[string]model.Lineup),
		teamOf:   make(map[string]string),
		versions: sequence.NewInMemoryTracker(),
	}
	s.publish()
	return s
}

// Lineup implements Store.
func (s *MemoryStore) Lineup(_ context.Context, teamID string) (model.Lineup, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	l, ok := s.snap.Load().lineups[teamID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Lineup{}, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
	}
	return l.Clone(), nil
}

// SavePlacement implements Store.
func (s *MemoryStore) SavePlacement(ctx context.Context, playerID string, x, y float64, version uint64) (model.PlayerPlacement, error) {
	start := time.Now()
	outcome := "applied"
	defer func() {
		metrics.RecordRepositoryWrite(backendMemory, outcome, float64(time.Since(start).Microseconds())/1000)
	}()

	if err := ValidatePlacement(x, y, version); err != nil {
		outcome = "invalid"
		return model.PlayerPlacement{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	teamID, ok := s.teamOf[playerID]
	if !ok {
		outcome = "not_found"
		return model.PlayerPlacement{}, fmt.Errorf("%w: player %s", ErrNotFound, playerID)
	}
	if !s.versions.Advance(ctx, playerID, version) {
		outcome = "stale"
		return model.PlayerPlacement{}, fmt.Errorf("%w: player %s has version %d, got %d",
			ErrStaleVersion, playerID, s.versions.Latest(ctx, playerID), version)
	}

	// Copy the slice so published snapshots stay immutable.
	l := s.lineups[teamID].Clone()
	i := l.Index(playerID)
	l.Placements[i].X = x
	l.Placements[i].Y = y
	l.Placements[i].Version = version
	s.lineups[teamID] = l
	s.publish()
	return l.Placements[i], nil
}

// PutLineup implements Store.
func (s *MemoryStore) PutLineup(ctx context.Context, l model.Lineup) error {
	if err := validateLineup(l); err != nil {
		return err
	}
	l = l.Clone()
	if l.Placements == nil {
		l.Placements = []model.PlayerPlacement{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range l.Placements {
		if other, ok := s.teamOf[p.PlayerID]; ok && other != l.TeamID {
			return fmt.Errorf("%w: player %s already in team %s", ErrInvalidPlacement, p.PlayerID, other)
		}
	}
	if old, ok := s.lineups[l.TeamID]; ok {
		for _, p := range old.Placements {
			delete(s.teamOf, p.PlayerID)
			s.versions.Forget(ctx, p.PlayerID)
		}
	}
	for _, p := range l.Placements {
		s.teamOf[p.PlayerID] = l.TeamID
		s.versions.Advance(ctx, p.PlayerID, p.Version)
	}
	s.lineups[l.TeamID] = l
	s.publish()
	return nil
}

// Teams implements Store.
func (s *MemoryStore) Teams(_ context.Context) ([]string, error) {
	teams := s.snap.Load().teams
	return append([]string(nil), teams...), nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	return s.snap.Load().count
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// publish rebuilds the read snapshot. Must be called with s.mu held or
// before the store is shared.
func (s *MemoryStore) publish() {
	next := &snapshot{
		lineups: make(map[string]model.Lineup, len(s.lineups)),
		teams:   make([]string, 0, len(s.lineups)),
	}
	for id, l := range s.lineups {
		next.lineups[id] = l
		next.teams = append(next.teams, id)
		next.count += len(l.Placements)
	}
	sort.Strings(next.teams)
	s.snap.Store(next)
	metrics.UpdatePlayersTracked(next.count)
}
