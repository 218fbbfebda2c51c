package simulate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/scorecard"
	"github.com/okian/cricscore/pkg/logger"
)

const historyPollInterval = 50 * time.Millisecond

// historyBody is the part of GET /history the simulator reads.
type historyBody struct {
	Matches []struct {
		MatchID string `json:"match_id"`
		Result  string `json:"result"`
	} `json:"matches"`
	Count int `json:"count"`
}

// Run plays cfg.Matches matches against the service, at most cfg.Workers at
// a time, and verifies every answer, each final scorecard and the archive.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulate")

	log.Info(ctx, "starting cricscore simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("matches", cfg.Matches),
		logger.Int("overs", cfg.Overs),
		logger.Int("playersPerSide", cfg.PlayersPerSide),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed),
	)

	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Play matches concurrently
	var (
		mu  sync.Mutex
		ids = make([]string, 0, cfg.Matches)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range cfg.Matches {
		g.Go(func() error {
			p := newPlayer(client, cfg, cfg.Seed+int64(i))
			m, err := p.play(gctx)
			if err != nil {
				return fmt.Errorf("match %d (%s): %w", i, m.ID, err)
			}
			if err := checkScorecard(gctx, client, m); err != nil {
				return fmt.Errorf("match %s: %w", m.ID, err)
			}

			mu.Lock()
			defer mu.Unlock()
			ids = append(ids, m.ID)
			stats.MatchesPlayed++
			stats.Deliveries += p.tally.deliveries
			stats.Wickets += p.tally.wickets
			stats.Duplicates += p.tally.duplicates
			stats.Undos += p.tally.undos
			log.Info(gctx, "match completed",
				logger.String("matchID", m.ID),
				logger.String("result", scorecard.Result(m).Text),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("simulation failed: %w", err)
	}

	// Step 3: Wait for the archive
	archived, err := waitForHistory(ctx, client, ids, cfg.Timeout)
	stats.Archived = archived
	if err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	var body []byte
	if err := client.Get(ctx, "/healthz", &body); err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	return nil
}

func checkScorecard(ctx context.Context, client *HTTPClient, m model.Match) error {
	var card scorecard.Card
	if err := client.Get(ctx, "/matches/"+m.ID+"/scorecard", &card); err != nil {
		return fmt.Errorf("scorecard: %w", err)
	}
	return VerifyCard(card, m)
}

// waitForHistory polls GET /history until every id is archived or timeout
// passes. It returns how many of ids were found.
func waitForHistory(ctx context.Context, client *HTTPClient, ids []string, timeout time.Duration) (int, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(historyPollInterval)
	defer ticker.Stop()
	for {
		var h historyBody
		if err := client.Get(ctx, "/history", &h); err != nil {
			return 0, fmt.Errorf("history: %w", err)
		}
		found := 0
		for _, e := range h.Matches {
			if _, ok := want[e.MatchID]; !ok {
				continue
			}
			if e.Result == scorecard.InProgress {
				return found, fmt.Errorf("archived match %s has no result: %w", e.MatchID, ErrInvariant)
			}
			found++
		}
		if found == len(want) {
			return found, nil
		}
		if time.Now().After(deadline) {
			return found, fmt.Errorf("%d of %d matches archived after %s: %w", found, len(want), timeout, ErrInvariant)
		}
		select {
		case <-ctx.Done():
			return found, ctx.Err()
		case <-ticker.C:
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	perSecond := 0.0
	if secs := stats.Duration.Seconds(); secs > 0 {
		perSecond = float64(stats.Deliveries) / secs
	}
	log.Info(ctx, "simulation completed",
		logger.Int("matches", stats.MatchesPlayed),
		logger.Int("deliveries", stats.Deliveries),
		logger.Int("wickets", stats.Wickets),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("undos", stats.Undos),
		logger.Int("archived", stats.Archived),
		logger.Duration("duration", stats.Duration),
		logger.Float64("deliveriesPerSecond", perSecond),
	)
}
