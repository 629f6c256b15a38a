// Package repository stores lineups for the lineup service.
//
// Every placement write carries a per-player version. A write whose
// version is not newer than the stored one is refused with ErrStaleVersion,
// which makes concurrent saves of the same player resolve as
// last-committed-wins regardless of arrival order.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/formation/internal/domain/model"
)

// Store provides read/write access to lineups.
type Store interface {
	// Lineup returns the team's lineup in its stored order.
	// Returns ErrNotFound if the team is unknown.
	Lineup(ctx context.Context, teamID string) (model.Lineup, error)

	// SavePlacement moves one player if version is newer than the stored
	// version. Returns the stored placement after the write.
	SavePlacement(ctx context.Context, playerID string, x, y float64, version uint64) (model.PlayerPlacement, error)

	// PutLineup replaces a team's lineup. Used for seeding.
	PutLineup(ctx context.Context, l model.Lineup) error

	// Teams lists known team IDs in ascending order.
	Teams(ctx context.Context) ([]string, error)

	// Count returns the number of placements stored.
	Count(ctx context.Context) int

	Close() error
}

// ValidatePlacement checks a write before it reaches a backend.
func ValidatePlacement(x, y float64, version uint64) error {
	switch {
	case !model.ValidCoordinate(x):
		return fmt.Errorf("%w: x=%v outside [0,1]", ErrInvalidPlacement, x)
	case !model.ValidCoordinate(y):
		return fmt.Errorf("%w: y=%v outside [0,1]", ErrInvalidPlacement, y)
	case version < 1:
		return fmt.Errorf("%w: version must be at least 1", ErrInvalidPlacement)
	}
	return nil
}

// validateLineup checks a lineup before it is stored.
func validateLineup(l model.Lineup) error {
	if strings.TrimSpace(l.TeamID) == "" {
		return fmt.Errorf("%w: missing team id", ErrInvalidPlacement)
	}
	seen := make(map[string]struct{}, len(l.Placements))
	captains := 0
	for _, p := range l.Placements {
		if strings.TrimSpace(p.PlayerID) == "" {
			return fmt.Errorf("%w: missing player id in team %s", ErrInvalidPlacement, l.TeamID)
		}
		if _, dup := seen[p.PlayerID]; dup {
			return fmt.Errorf("%w: duplicate player %s", ErrInvalidPlacement, p.PlayerID)
		}
		seen[p.PlayerID] = struct{}{}
		if !p.InUnitSquare() {
			return fmt.Errorf("%w: player %s at (%v, %v)", ErrInvalidPlacement, p.PlayerID, p.X, p.Y)
		}
		if p.IsCaptain {
			captains++
		}
	}
	if captains > 1 {
		return fmt.Errorf("%w: team %s has %d captains", ErrInvalidPlacement, l.TeamID, captains)
	}
	return nil
}
