package loadtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/pkg/logger"
)

// ErrMismatch is returned when a stored placement is not the latest write.
var ErrMismatch = errors.New("stored placement is not the latest accepted write")

// verifyResults checks every moved player against its highest-version move.
// When that move was accepted the stored placement must equal it; otherwise
// the stored version must not be newer than any generated one.
func verifyResults(ctx context.Context, cfg *Config, moves []Move, accepted map[Move]bool, after model.Lineup, stats *Stats) error {
	var errs []error
	for playerID, want := range latestMoves(moves) {
		i := after.Index(playerID)
		if i < 0 {
			errs = append(errs, fmt.Errorf("%w: player %s missing", ErrMismatch, playerID))
			continue
		}
		got := after.Placements[i]

		switch {
		case accepted[want]:
			if got.Version != want.Version || got.X != want.X || got.Y != want.Y {
				errs = append(errs, fmt.Errorf("%w: player %s stored v%d (%.3f, %.3f), want v%d (%.3f, %.3f)",
					ErrMismatch, playerID, got.Version, got.X, got.Y, want.Version, want.X, want.Y))
			}
		case got.Version > want.Version:
			errs = append(errs, fmt.Errorf("%w: player %s stored v%d beyond generated v%d",
				ErrMismatch, playerID, got.Version, want.Version))
		default:
			if cfg.Verbose {
				logger.Get().Warn(ctx, "latest move was not accepted",
					logger.String("player_id", playerID),
					logger.Uint64("version", want.Version),
				)
			}
		}
		stats.PlayersVerified++
	}
	return errors.Join(errs...)
}
