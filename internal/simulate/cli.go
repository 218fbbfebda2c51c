package simulate

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/cricscore/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log lines to stdout and to logFile. An empty logFile
// gets a timestamped name. The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	if logFile == "" {
		logFile = "simulate_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return file.Close, nil
}

// ShowHelp prints usage information for the simulate tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Cricscore Match Simulator
=========================

Plays seeded random matches against a running scorebook and verifies the
scoring invariants of every answer, each final scorecard and the archive.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -matches int        Number of matches to play (default 20)
  -overs int          Overs per innings (default 5)
  -players int        Players per side, at least 2 (default 11)
  -workers int        Matches played concurrently (default CPU cores)
  -seed int           Seed for the ball generator (default 1)
  -retry float        Share of balls re-sent with the same key (default 0.05)
  -undo float         Share of balls undone and scored again (default 0.02)
  -timeout duration   HTTP request timeout (default 10s)
  -log string         Log file (default: simulate_TIMESTAMP.log)
  -verbose            Log every delivery
  -help               Show this help message

Examples:
  # Ten T20 matches, eight at a time
  go run ./cmd/simulate -matches 10 -overs 20 -workers 8

  # Replay a failing run
  go run ./cmd/simulate -seed 42 -verbose
`)
}
