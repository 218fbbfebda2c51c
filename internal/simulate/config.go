// Package simulate plays seeded random matches against a running scorebook
// over HTTP and checks the scoring invariants on every response.
package simulate

import (
	"errors"
	"fmt"
	"time"
)

// Defaults used by the simulate command.
const (
	DefaultMatches        = 20
	DefaultOvers          = 5
	DefaultPlayersPerSide = 11
	DefaultTimeout        = 10 * time.Second
	minPlayersPerSide     = 2
)

// ErrInvalidConfig marks a configuration the simulator cannot run with.
var ErrInvalidConfig = errors.New("invalid simulate config")

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Matches        int           // Number of matches to play
	Overs          int           // Overs per innings
	PlayersPerSide int           // Squad size
	Workers        int           // Matches played concurrently
	Seed           int64         // Seed for the ball generator; match i uses Seed+i
	Timeout        time.Duration // HTTP request timeout
	RetryRate      float64       // Share of balls re-sent with the same key
	UndoRate       float64       // Share of balls undone and scored again
	Verbose        bool          // Log every delivery
}

// Validate reports the first setting the simulator cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("base url is required: %w", ErrInvalidConfig)
	case c.Matches < 1:
		return fmt.Errorf("matches must be positive: %w", ErrInvalidConfig)
	case c.Overs < 1:
		return fmt.Errorf("overs must be positive: %w", ErrInvalidConfig)
	case c.PlayersPerSide < minPlayersPerSide:
		return fmt.Errorf("at least %d players per side: %w", minPlayersPerSide, ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("workers must be positive: %w", ErrInvalidConfig)
	case c.RetryRate < 0 || c.RetryRate > 1 || c.UndoRate < 0 || c.UndoRate > 1:
		return fmt.Errorf("rates must be within 0-1: %w", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics. Counters are filled in by Run.
type Stats struct {
	MatchesPlayed int
	Deliveries    int
	Wickets       int
	Duplicates    int
	Undos         int
	Archived      int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
