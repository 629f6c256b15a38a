// Package placement turns pointer gestures on player markers into committed
// placement changes.
//
// Each player has an independent gesture state machine:
//
//	Idle -> Dragging -> Committing -> Idle
//	Idle -> Dragging -> Cancelled -> Idle
//
// A drag never touches the lineup. Only Release produces a
// model.PlacementChange, which the caller hands to the lineup store.
package placement

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/formation/internal/domain/geometry"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/pkg/logger"
	"github.com/okian/formation/pkg/metrics"
)

type transition struct {
	playerID string
	from, to State
}

// Controller owns every in-progress drag for one pitch.
type Controller struct {
	mu       sync.Mutex
	pitch    geometry.Pitch
	sessions map[string]Session

	hooks  []func(playerID string, from, to State)
	logger logger.Logger
}

// New creates a controller with an unmeasured pitch. Dragging stays disabled
// until Measure is called with a usable geometry.
func New(opts ...Option) *Controller {
	c := &Controller{
		sessions: make(map[string]Session),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("placement")
	}
	return c
}

// Measure records the geometry of the latest layout pass. In-flight drags
// keep their origin; the new geometry only affects clamping at release.
func (c *Controller) Measure(pitch geometry.Pitch) {
	c.mu.Lock()
	c.pitch = pitch
	c.mu.Unlock()
}

// Pitch returns the last measured geometry.
func (c *Controller) Pitch() geometry.Pitch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pitch
}

// Ready reports whether dragging is enabled.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pitch.Measured()
}

// Begin starts a drag for p at its stored position. A second Begin for a
// player that is already dragging is a no-op returning the existing session
// and ErrAlreadyDragging.
func (c *Controller) Begin(ctx context.Context, p model.PlayerPlacement) (Session, error) {
	c.mu.Lock()
	if !c.pitch.Measured() {
		c.mu.Unlock()
		c.logger.Debug(ctx, "drag ignored, pitch not measured", logger.String("player_id", p.PlayerID))
		return Session{}, ErrGeometryUnready
	}
	if s, ok := c.sessions[p.PlayerID]; ok {
		c.mu.Unlock()
		return s, ErrAlreadyDragging
	}
	s := newSession(p.PlayerID, geometry.AbsolutePoint(p.X, p.Y, c.pitch), c.pitch)
	c.sessions[p.PlayerID] = s
	c.mu.Unlock()

	metrics.RecordDragStarted()
	c.notify(transition{p.PlayerID, Idle, Dragging})
	return s, nil
}

// Move replaces the player's session with one whose offset is (dx, dy) from
// the drag start. Nothing is clamped and nothing is emitted.
func (c *Controller) Move(_ context.Context, playerID string, dx, dy float64) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[playerID]
	if !ok {
		return Session{}, ErrNoSession
	}
	s = s.Moved(dx, dy)
	c.sessions[playerID] = s
	return s, nil
}

// Release commits the player's drag. The final position is clamped to the
// current pitch and converted to normalized coordinates. When the current
// geometry is malformed the clamp is skipped and the raw position is
// normalized against the geometry the drag began on.
func (c *Controller) Release(ctx context.Context, playerID string) (model.PlacementChange, error) {
	c.mu.Lock()
	s, ok := c.sessions[playerID]
	if !ok {
		c.mu.Unlock()
		return model.PlacementChange{}, ErrNoSession
	}
	delete(c.sessions, playerID)
	pitch := c.pitch
	c.mu.Unlock()

	c.notify(transition{playerID, Dragging, Committing})

	final := s.Position()
	clamped := false
	if pitch.Measured() {
		final, clamped = geometry.Clamp(final, pitch)
	} else {
		c.logger.Warn(ctx, "malformed geometry at release, committing unclamped",
			logger.String("player_id", playerID),
			logger.Float64("width", pitch.Width),
			logger.Float64("height", pitch.Height),
		)
		pitch = s.pitch
	}
	x, y := geometry.ToNormalized(final.X, final.Y, pitch)
	change := model.PlacementChange{PlayerID: playerID, X: x, Y: y, Clamped: clamped}

	metrics.RecordDragCommitted(clamped)
	c.logger.Debug(ctx, "drag committed",
		logger.String("player_id", playerID),
		logger.Float64("x", x),
		logger.Float64("y", y),
		logger.Bool("clamped", clamped),
	)
	c.notify(transition{playerID, Committing, Idle})
	return change, nil
}

// Cancel discards the player's drag without emitting anything.
func (c *Controller) Cancel(ctx context.Context, playerID string) error {
	c.mu.Lock()
	_, ok := c.sessions[playerID]
	delete(c.sessions, playerID)
	c.mu.Unlock()
	if !ok {
		return ErrNoSession
	}

	metrics.RecordDragCancelled()
	c.logger.Debug(ctx, "drag cancelled", logger.String("player_id", playerID))
	c.notify(transition{playerID, Dragging, Cancelled})
	c.notify(transition{playerID, Cancelled, Idle})
	return nil
}

// CancelAll cancels every drag, e.g. when the surface loses focus. It
// returns the number of sessions discarded.
func (c *Controller) CancelAll(ctx context.Context) int {
	c.mu.Lock()
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	n := 0
	for _, id := range ids {
		if err := c.Cancel(ctx, id); err == nil {
			n++
		}
	}
	return n
}

// State returns Idle or Dragging for the player.
func (c *Controller) State(playerID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[playerID]; ok {
		return Dragging
	}
	return Idle
}

// Session returns the player's current drag, if any.
func (c *Controller) Session(playerID string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[playerID]
	return s, ok
}

// DisplayPosition is where the player's marker should be drawn while it is
// being dragged. The second return is false when the player is Idle.
func (c *Controller) DisplayPosition(playerID string) (geometry.Point, bool) {
	s, ok := c.Session(playerID)
	if !ok {
		return geometry.Point{}, false
	}
	return s.Position(), true
}

// Active returns all in-progress sessions ordered by player ID.
func (c *Controller) Active() []Session {
	c.mu.Lock()
	out := make([]Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].playerID < out[j].playerID })
	return out
}

func (c *Controller) notify(t transition) {
	for _, fn := range c.hooks {
		fn(t.playerID, t.from, t.to)
	}
}
