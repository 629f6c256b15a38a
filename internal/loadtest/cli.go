package loadtest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/formation/pkg/logger"
)

// logFilePermission is the mode for newly created log files.
const logFilePermission = 0o600

// SetupLogging initialises the logger to write to stdout and a log file.
// An empty logFile picks a timestamped name in the working directory.
func SetupLogging(logFile string) (string, error) {
	if logFile == "" {
		logFile = "loadtest_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logFile, nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Formation Placement Load Test
=============================

Races concurrent, versioned placement writes against a running lineup
service and checks that each player ends up at its newest accepted write.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string
        Base URL of the service (default from FORMATION_REMOTE_URL)
  -team string
        Team whose players are moved (default from FORMATION_TEAM_ID)
  -moves int
        Number of placement writes (default 2000)
  -workers int
        Number of concurrent writers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default from FORMATION_REMOTE_TIMEOUT_MS)
  -seed uint
        Seed for move generation, 0 for a random one
  -log string
        Log file (default: loadtest_TIMESTAMP.log)
  -verbose
        Log every rejected write
  -help
        Show this help message

Examples:
  go run ./cmd/loadtest -team home -moves 10000 -workers 32
`)
}
