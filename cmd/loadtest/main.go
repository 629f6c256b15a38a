package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/formation/internal/config"
	"github.com/okian/formation/internal/loadtest"
	"github.com/okian/formation/pkg/logger"
)

// Default configuration constants.
const (
	defaultMoves       = 2000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("failed to read .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var (
		baseURL = flag.String("url", cfg.RemoteURL, "Base URL of the service")
		team    = flag.String("team", cfg.TeamID, "Team whose players are moved")
		moves   = flag.Int("moves", defaultMoves, "Number of placement writes")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent writers")
		timeout = flag.Duration("timeout", cfg.RemoteTimeout(), "HTTP request timeout")
		seed    = flag.Uint64("seed", 0, "Seed for move generation, 0 for a random one")
		logFile = flag.String("log", "", "Log file (default: loadtest_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Log every rejected write")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp(os.Stdout)
		return
	}

	if _, err := loadtest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	_, err = loadtest.Run(ctx, &loadtest.Config{
		BaseURL: *baseURL,
		TeamID:  *team,
		Moves:   *moves,
		Workers: *workers,
		Timeout: *timeout,
		Seed:    *seed,
		Verbose: *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "test failed", logger.Error(err))
		os.Exit(1)
	}
}
