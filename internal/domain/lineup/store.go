// Package lineup holds the in-memory lineup for one team and mediates every
// read and write of it.
//
// Writes are optimistic: ApplyPlacement changes the local lineup at once and
// hands a versioned save to the Saver without waiting. Completions come back
// through HandleSaveResult, which drops results for superseded versions and
// notifies subscribers of the rest.
package lineup

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/internal/domain/sequence"
	"github.com/okian/formation/pkg/logger"
	"github.com/okian/formation/pkg/metrics"
)

// Fetcher reads a team's lineup from the remote store.
type Fetcher interface {
	Lineup(ctx context.Context, teamID string) (model.Lineup, error)
}

// Saver issues one remote placement write. Save must not block; done is
// called exactly once when the write finishes, on any goroutine.
type Saver interface {
	Save(ctx context.Context, req model.SaveRequest, done func(model.SaveResult))
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, teamID string) (model.Lineup, error)

// Lineup implements Fetcher.
func (f FetcherFunc) Lineup(ctx context.Context, teamID string) (model.Lineup, error) {
	return f(ctx, teamID)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, req model.SaveRequest, done func(model.SaveResult))

// Save implements Saver.
func (f SaverFunc) Save(ctx context.Context, req model.SaveRequest, done func(model.SaveResult)) {
	f(ctx, req, done)
}

// Store is the source of truth the renderer reads and the controller
// mutates.
type Store struct {
	mu     sync.RWMutex
	lineup model.Lineup
	loaded bool

	fetcher  Fetcher
	saver    Saver
	versions sequence.Tracker

	subMu   sync.RWMutex
	subs    map[int]func(model.SaveResult)
	nextSub int

	now    func() time.Time
	nextID func() string
	logger logger.Logger
}

// NewStore creates an empty store.
func NewStore(fetcher Fetcher, saver Saver, opts ...Option) *Store {
	s := &Store{
		fetcher:  fetcher,
		saver:    saver,
		versions: sequence.NewInMemoryTracker(),
		subs:     make(map[int]func(model.SaveResult)),
		now:      time.Now,
		nextID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("lineup")
	}
	return s
}

// Load fetches teamID and replaces the held lineup. On failure the previous
// lineup (or the empty one) is kept and the error wraps ErrFetch. There is
// no retry.
func (s *Store) Load(ctx context.Context, teamID string) (model.Lineup, error) {
	fetched, err := s.fetcher.Lineup(ctx, teamID)
	if err != nil {
		metrics.RecordLineupLoad("error")
		metrics.RecordErrorByComponent("lineup", "fetch_error")
		s.logger.Warn(ctx, "lineup fetch failed", logger.String("team_id", teamID), logger.Error(err))
		return s.Lineup(), fmt.Errorf("%w: team %s: %w", ErrFetch, teamID, err)
	}
	if fetched.TeamID == "" {
		fetched.TeamID = teamID
	}
	fetched = fetched.Clone()
	if fetched.Placements == nil {
		fetched.Placements = []model.PlayerPlacement{}
	}

	s.mu.Lock()
	prev := s.lineup
	sameTeam := s.loaded && prev.TeamID == fetched.TeamID
	for i := range fetched.Placements {
		p := &fetched.Placements[i]
		latest := s.versions.Latest(ctx, p.PlayerID)
		if latest <= p.Version {
			s.versions.Advance(ctx, p.PlayerID, p.Version)
			continue
		}
		// A local write newer than the fetched record is in flight or
		// unsaved; it stays whole so coordinates and version agree.
		if j := prev.Index(p.PlayerID); sameTeam && j >= 0 && prev.Placements[j].Version == latest {
			local := prev.Placements[j]
			p.X, p.Y = local.X, local.Y
			p.Version = local.Version
			p.Unsaved = local.Unsaved
		}
	}
	s.lineup = fetched
	s.loaded = true
	out := s.lineup.Clone()
	s.mu.Unlock()

	metrics.RecordLineupLoad("ok")
	metrics.UpdatePlayersTracked(len(out.Placements))
	s.logger.Info(ctx, "lineup loaded", logger.String("team_id", teamID), logger.Int("players", len(out.Placements)))
	return out, nil
}

// Lineup returns a copy of the held lineup.
func (s *Store) Lineup() model.Lineup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.lineup.Clone()
	if out.Placements == nil {
		out.Placements = []model.PlayerPlacement{}
	}
	return out
}

// Loaded reports whether any load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// TeamID returns the team of the held lineup.
func (s *Store) TeamID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lineup.TeamID
}

// Placement returns the held placement for playerID.
func (s *Store) Placement(playerID string) (model.PlayerPlacement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.lineup.Index(playerID)
	if i < 0 {
		return model.PlayerPlacement{}, false
	}
	return s.lineup.Placements[i], true
}

// Apply is ApplyPlacement for a controller commit.
func (s *Store) Apply(ctx context.Context, change model.PlacementChange) (model.SaveRequest, error) {
	return s.ApplyPlacement(ctx, change.PlayerID, change.X, change.Y)
}

// ApplyPlacement updates playerID locally, bumps its version and issues an
// asynchronous save. It returns the issued request; the caller never waits
// on the result.
func (s *Store) ApplyPlacement(ctx context.Context, playerID string, x, y float64) (model.SaveRequest, error) {
	if !finite(x) || !finite(y) {
		return model.SaveRequest{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidInput, x, y)
	}

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return model.SaveRequest{}, ErrNotLoaded
	}
	i := s.lineup.Index(playerID)
	if i < 0 {
		s.mu.Unlock()
		return model.SaveRequest{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	p := &s.lineup.Placements[i]
	version := max(p.Version, s.versions.Latest(ctx, playerID)) + 1
	s.versions.Advance(ctx, playerID, version)
	p.X, p.Y = x, y
	p.Version = version
	p.Unsaved = false
	req := model.SaveRequest{
		RequestID: s.nextID(),
		TeamID:    s.lineup.TeamID,
		PlayerID:  playerID,
		X:         x,
		Y:         y,
		Version:   version,
		IssuedAt:  s.now(),
	}
	s.mu.Unlock()

	metrics.RecordPlacementApplied()
	metrics.RecordSaveIssued()
	s.logger.Debug(ctx, "placement applied",
		logger.String("player_id", playerID),
		logger.Float64("x", x),
		logger.Float64("y", y),
		logger.Uint64("version", version),
	)

	s.saver.Save(context.WithoutCancel(ctx), req, s.HandleSaveResult)
	return req, nil
}

// HandleSaveResult records the outcome of a save. Results for a version
// that has since been superseded are dropped. A failed or stale latest save
// marks the placement Unsaved; the optimistic value is kept.
func (s *Store) HandleSaveResult(res model.SaveResult) {
	ctx := context.Background()
	req := res.Request
	metrics.RecordSaveResult(string(res.Status), float64(res.Latency.Milliseconds()))

	s.mu.Lock()
	if req.TeamID != s.lineup.TeamID || !s.versions.IsLatest(ctx, req.PlayerID, req.Version) {
		s.mu.Unlock()
		s.logger.Debug(ctx, "superseded save result dropped",
			logger.String("player_id", req.PlayerID),
			logger.Uint64("version", req.Version),
			logger.String("status", string(res.Status)),
		)
		return
	}
	if i := s.lineup.Index(req.PlayerID); i >= 0 {
		s.lineup.Placements[i].Unsaved = res.Status != model.SaveOK
	}
	s.mu.Unlock()

	if res.Status != model.SaveOK {
		metrics.RecordErrorByComponent("lineup", "save_"+string(res.Status))
		s.logger.Warn(ctx, "placement not saved",
			logger.String("player_id", req.PlayerID),
			logger.Uint64("version", req.Version),
			logger.String("status", string(res.Status)),
			logger.Error(res.Err),
		)
	}
	s.publish(res)
}

// Subscribe registers fn for every non-superseded save result. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(model.SaveResult)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Unsaved lists players whose latest save did not succeed.
func (s *Store) Unsaved() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, p := range s.lineup.Placements {
		if p.Unsaved {
			out = append(out, p.PlayerID)
		}
	}
	return out
}

func (s *Store) publish(res model.SaveResult) {
	s.subMu.RLock()
	fns := make([]func(model.SaveResult), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()
	for _, fn := range fns {
		fn(res)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SaveError builds the error carried by a failed SaveResult.
func SaveError(req model.SaveRequest, err error) error {
	return fmt.Errorf("%w: player %s version %d: %w", ErrSave, req.PlayerID, req.Version, err)
}
