// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// PlayerPlacement is one player's position within a lineup. X and Y are
// normalized: X is the fraction of pitch width from the left edge, Y the
// fraction of pitch height from the top edge.
type PlayerPlacement struct {
	PlayerID      string
	X             float64
	Y             float64
	IsCaptain     bool
	DisplayName   string
	PhotoRef      string
	PositionLabel string
	JerseyNumber  int

	// Version is the per-player sequence of the last committed placement.
	// Zero means the placement has never been written by this engine.
	Version uint64
	// Unsaved is set when the last remote save for this player failed.
	Unsaved bool
}

// InUnitSquare reports whether both coordinates lie in [0,1].
func (p PlayerPlacement) InUnitSquare() bool {
	return ValidCoordinate(p.X) && ValidCoordinate(p.Y)
}

// ValidCoordinate reports whether v is a finite value in [0,1].
func ValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 1
}

// Lineup is the ordered collection of placements for one team.
type Lineup struct {
	TeamID     string
	Placements []PlayerPlacement
}

// Clone returns a deep copy so callers can never alias store state.
func (l Lineup) Clone() Lineup {
	out := Lineup{TeamID: l.TeamID}
	if l.Placements != nil {
		out.Placements = make([]PlayerPlacement, len(l.Placements))
		copy(out.Placements, l.Placements)
	}
	return out
}

// Index returns the position of playerID in the lineup or -1.
func (l Lineup) Index(playerID string) int {
	for i := range l.Placements {
		if l.Placements[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// PlacementChange is emitted by the input controller when a drag commits.
type PlacementChange struct {
	PlayerID string
	X        float64
	Y        float64
	// Clamped is true when the released position was outside the pitch.
	Clamped bool
}

// SaveRequest is one remote write of a single player's placement.
type SaveRequest struct {
	RequestID string
	TeamID    string
	PlayerID  string
	X         float64
	Y         float64
	Version   uint64
	IssuedAt  time.Time
}

// SaveStatus tags the outcome of a remote save.
type SaveStatus string

// Save outcomes.
const (
	SaveOK     SaveStatus = "ok"
	SaveFailed SaveStatus = "failed"
	// SaveStale means a newer version for the same player was already
	// applied; the write was discarded.
	SaveStale SaveStatus = "stale"
)

// SaveResult reports how a SaveRequest ended.
type SaveResult struct {
	Request SaveRequest
	Status  SaveStatus
	Err     error
	Latency time.Duration
}
