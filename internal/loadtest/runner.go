// Package loadtest drives concurrent placement writes against a running
// lineup service and checks that the highest version of every player wins.
package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/formation/internal/adapters/remote"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/pkg/logger"
)

// percentageMultiplier converts ratios to percentages.
const percentageMultiplier = 100

// Run executes the complete load test and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadtest")

	log.Info(ctx, "starting placement load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("team", cfg.TeamID),
		logger.Int("moves", cfg.Moves),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, cfg); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// A breaker would turn a burst of failures into skipped writes.
	client, err := remote.New(cfg.BaseURL,
		remote.WithTimeout(cfg.Timeout),
		remote.WithBreaker(uint32(max(cfg.Moves, 1)), time.Second),
		remote.WithLogger(log.Named("remote")),
	)
	if err != nil {
		return stats, err
	}

	// Step 2: Read the current lineup
	before, err := client.Lineup(ctx, cfg.TeamID)
	if err != nil {
		return stats, fmt.Errorf("lineup read failed: %w", err)
	}

	// Step 3: Generate moves
	moves, err := generateMoves(ctx, cfg, before, stats)
	if err != nil {
		return stats, fmt.Errorf("move generation failed: %w", err)
	}

	// Step 4: Submit moves concurrently
	accepted := submitMoves(ctx, cfg, client, moves, stats)

	// Step 5: Read the lineup back and verify
	after, err := client.Lineup(ctx, cfg.TeamID)
	if err != nil {
		return stats, fmt.Errorf("lineup read failed: %w", err)
	}
	if err := verifyResults(ctx, cfg, moves, accepted, after, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "test completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := (&http.Client{Timeout: cfg.Timeout}).Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// submitMoves writes moves with cfg.Workers goroutines. It returns the
// moves the service accepted, keyed by player and version.
func submitMoves(ctx context.Context, cfg *Config, client *remote.Client, moves []Move, stats *Stats) map[Move]bool {
	var (
		submitted, ok, stale, failed int64
		mu                           sync.Mutex
		accepted                     = make(map[Move]bool)
		wg                           sync.WaitGroup
	)

	jobs := make(chan Move)
	for i := 0; i < max(cfg.Workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				atomic.AddInt64(&submitted, 1)
				status, err := client.SavePlacement(ctx, model.SaveRequest{
					RequestID: uuid.NewString(),
					TeamID:    cfg.TeamID,
					PlayerID:  m.PlayerID,
					X:         m.X,
					Y:         m.Y,
					Version:   m.Version,
					IssuedAt:  time.Now(),
				})
				switch status {
				case model.SaveOK:
					atomic.AddInt64(&ok, 1)
					mu.Lock()
					accepted[m] = true
					mu.Unlock()
				case model.SaveStale:
					atomic.AddInt64(&stale, 1)
				default:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						logger.Get().Warn(ctx, "move failed",
							logger.String("player_id", m.PlayerID),
							logger.Uint64("version", m.Version),
							logger.Error(err),
						)
					}
				}
			}
		}()
	}

	for _, m := range moves {
		select {
		case jobs <- m:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	stats.MovesSubmitted = int(submitted)
	stats.MovesAccepted = int(ok)
	stats.MovesStale = int(stale)
	stats.MovesFailed = int(failed)
	return accepted
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, movesPerSecond float64

	if stats.MovesSubmitted > 0 {
		acceptRate = float64(stats.MovesAccepted) / float64(stats.MovesSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		movesPerSecond = float64(stats.MovesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("movesGenerated", stats.MovesGenerated),
		logger.Int("movesSubmitted", stats.MovesSubmitted),
		logger.Int("movesAccepted", stats.MovesAccepted),
		logger.Int("movesStale", stats.MovesStale),
		logger.Int("movesFailed", stats.MovesFailed),
		logger.Int("playersVerified", stats.PlayersVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("movesPerSecond", movesPerSecond),
	)
}
