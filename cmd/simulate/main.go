package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/cricscore/internal/simulate"
)

// Default configuration constants.
const (
	defaultRetryRate = 0.05
	defaultUndoRate  = 0.02
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		matches = flag.Int("matches", simulate.DefaultMatches, "Number of matches to play")
		overs   = flag.Int("overs", simulate.DefaultOvers, "Overs per innings")
		players = flag.Int("players", simulate.DefaultPlayersPerSide, "Players per side")
		workers = flag.Int("workers", runtime.NumCPU(), "Matches played concurrently")
		seed    = flag.Int64("seed", 1, "Seed for the ball generator")
		retry   = flag.Float64("retry", defaultRetryRate, "Share of balls re-sent with the same key")
		undo    = flag.Float64("undo", defaultUndoRate, "Share of balls undone and scored again")
		timeout = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		logFile = flag.String("log", "", "Log file (default: simulate_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Log every delivery")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp(os.Stdout)
		return
	}

	cfg := &simulate.Config{
		BaseURL:        *baseURL,
		Matches:        *matches,
		Overs:          *overs,
		PlayersPerSide: *players,
		Workers:        *workers,
		Seed:           *seed,
		Timeout:        *timeout,
		RetryRate:      *retry,
		UndoRate:       *undo,
		Verbose:        *verbose,
	}
	if err := run(cfg, *logFile); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(cfg *simulate.Config, logFile string) error {
	closeLog, err := simulate.SetupLogging(logFile, cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunLimit)
	defer cancel()

	_, err = simulate.Run(ctx, cfg)
	return err
}
