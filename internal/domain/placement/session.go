package placement

import (
	"fmt"

	"github.com/okian/formation/internal/domain/geometry"
)

// State is where one player's marker is in the gesture lifecycle.
type State int

// Gesture states. Committing and Cancelled are transitional: they are
// reported to transition hooks and then the marker is Idle again.
const (
	Idle State = iota
	Dragging
	Committing
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Session is the state of one in-progress drag. It is a value: every pointer
// move produces a new Session and the old one is dropped.
type Session struct {
	playerID string
	origin   geometry.Point
	offset   geometry.Point
	// pitch is the geometry the drag started on.
	pitch geometry.Pitch
}

func newSession(playerID string, origin geometry.Point, pitch geometry.Pitch) Session {
	return Session{playerID: playerID, origin: origin, pitch: pitch}
}

// PlayerID is the player being dragged.
func (s Session) PlayerID() string { return s.playerID }

// Origin is the marker's absolute position when the drag began.
func (s Session) Origin() geometry.Point { return s.origin }

// Offset is the running delta since the drag began.
func (s Session) Offset() geometry.Point { return s.offset }

// Position is origin plus offset, unclamped.
func (s Session) Position() geometry.Point { return s.origin.Add(s.offset) }

// Moved returns a copy of s whose running offset is (dx, dy), measured from
// the start of the drag.
func (s Session) Moved(dx, dy float64) Session {
	s.offset = geometry.Point{X: dx, Y: dy}
	return s
}

// String is used in debug output.
func (s Session) String() string {
	return fmt.Sprintf("drag(%s origin=%.1f,%.1f offset=%.1f,%.1f)",
		s.playerID, s.origin.X, s.origin.Y, s.offset.X, s.offset.Y)
}
