package loadtest

import "time"

// Config holds configuration for a placement load test.
type Config struct {
	BaseURL string        // Base URL of the lineup service
	TeamID  string        // Team whose players are moved
	Moves   int           // Number of placement writes to generate
	Workers int           // Number of concurrent writers
	Timeout time.Duration // Per-request timeout
	Seed    uint64        // Seed for move generation; zero picks one from the clock
	Verbose bool          // Log every rejected write
}

// Move is one generated placement write.
type Move struct {
	PlayerID string  `json:"player_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Version  uint64  `json:"version"`
}

// Stats holds test statistics.
type Stats struct {
	MovesGenerated  int
	MovesSubmitted  int
	MovesAccepted   int
	MovesStale      int
	MovesFailed     int
	PlayersVerified int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
