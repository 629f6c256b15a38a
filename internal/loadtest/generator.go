package loadtest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/pkg/logger"
)

// coordinateStep keeps generated coordinates exactly representable after a
// JSON round trip.
const coordinateStep = 1000

// generateMoves builds cfg.Moves writes over the players of l. Each player's
// versions count up from its stored version; the slice is then shuffled so
// writes reach the service out of order.
func generateMoves(ctx context.Context, cfg *Config, l model.Lineup, stats *Stats) ([]Move, error) {
	if len(l.Placements) == 0 {
		return nil, fmt.Errorf("team %s has no players", l.TeamID)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	next := make(map[string]uint64, len(l.Placements))
	for _, p := range l.Placements {
		next[p.PlayerID] = p.Version
	}

	moves := make([]Move, cfg.Moves)
	for i := range moves {
		p := l.Placements[rng.IntN(len(l.Placements))]
		next[p.PlayerID]++
		moves[i] = Move{
			PlayerID: p.PlayerID,
			X:        float64(rng.IntN(coordinateStep+1)) / coordinateStep,
			Y:        float64(rng.IntN(coordinateStep+1)) / coordinateStep,
			Version:  next[p.PlayerID],
		}
	}
	rng.Shuffle(len(moves), func(i, j int) { moves[i], moves[j] = moves[j], moves[i] })

	stats.MovesGenerated = len(moves)
	logger.Get().Info(ctx, "moves generated",
		logger.Int("moves", len(moves)),
		logger.Int("players", len(l.Placements)),
		logger.Uint64("seed", seed),
	)
	return moves, nil
}

// latestMoves returns the highest-version move per player.
func latestMoves(moves []Move) map[string]Move {
	latest := make(map[string]Move)
	for _, m := range moves {
		if cur, ok := latest[m.PlayerID]; !ok || m.Version > cur.Version {
			latest[m.PlayerID] = m
		}
	}
	return latest
}
