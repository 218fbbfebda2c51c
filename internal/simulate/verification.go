package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/scorecard"
	"github.com/okian/cricscore/internal/domain/types"
)

// ErrInvariant marks a server answer that breaks a scoring rule.
var ErrInvariant = errors.New("scoring invariant violated")

// VerifyMatch checks the totals of both innings against their deliveries
// and player figures. All violations are reported together.
func VerifyMatch(m model.Match) error {
	var errs []error
	for i := range m.Innings {
		inn := &m.Innings[i]
		for _, err := range verifyInnings(&m, inn) {
			errs = append(errs, fmt.Errorf("innings %d: %w", i+1, err))
		}
	}
	if m.CurrentInnings < 1 || m.CurrentInnings > 2 {
		errs = append(errs, fmt.Errorf("current innings %d: %w", m.CurrentInnings, ErrInvariant))
	}
	if m.Completed() && scorecard.Result(m).Text == scorecard.InProgress {
		errs = append(errs, fmt.Errorf("completed match without a result: %w", ErrInvariant))
	}
	return errors.Join(errs...)
}

func verifyInnings(m *model.Match, inn *model.Innings) []error {
	var (
		errs                              []error
		deliveryRuns, legal, legalBatRuns int
	)
	for i := range inn.Deliveries {
		d := &inn.Deliveries[i]
		deliveryRuns += d.TotalRuns()
		if d.CountsAsBall {
			legal++
			legalBatRuns += d.RunsOffBat
		}
	}

	var bowlerRuns, bowlerWickets int
	for _, b := range inn.Bowlers {
		bowlerRuns += b.Runs
		bowlerWickets += b.Wickets
	}

	var batsmanRuns, outs int
	for _, b := range inn.Batsmen {
		batsmanRuns += b.Runs
		if b.IsOut {
			outs++
		}
	}

	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format+": %w", append(args, ErrInvariant)...))
		}
	}
	maxWickets := max(len(m.BattingTeam(inn).Players)-1, 1)
	check(deliveryRuns == inn.TotalRuns, "deliveries sum to %d, total is %d", deliveryRuns, inn.TotalRuns)
	check(bowlerRuns == inn.TotalRuns, "bowlers conceded %d, total is %d", bowlerRuns, inn.TotalRuns)
	check(legal == inn.Balls, "%d legal deliveries, %d balls", legal, inn.Balls)
	check(inn.Wickets <= maxWickets, "%d wickets, at most %d", inn.Wickets, maxWickets)
	check(outs == inn.Wickets, "%d batsmen out, %d wickets", outs, inn.Wickets)
	check(bowlerWickets <= inn.Wickets, "bowlers credited %d of %d wickets", bowlerWickets, inn.Wickets)
	check(batsmanRuns == legalBatRuns, "batsmen scored %d, %d off the bat", batsmanRuns, legalBatRuns)
	check(inn.Balls <= m.OversLimit*model.BallsPerOver, "%d balls past the %d over limit", inn.Balls, m.OversLimit)
	return errs
}

// VerifyCard checks a scorecard against the match it was built from.
func VerifyCard(card scorecard.Card, m model.Match) error {
	var errs []error
	if card.MatchID != m.ID {
		errs = append(errs, fmt.Errorf("card for %q, want %q: %w", card.MatchID, m.ID, ErrInvariant))
	}
	if card.Status != m.Status {
		errs = append(errs, fmt.Errorf("card status %s, match %s: %w", card.Status, m.Status, ErrInvariant))
	}
	if m.Status == types.StatusCompleted && card.Result.Text == scorecard.InProgress {
		errs = append(errs, fmt.Errorf("completed card without a result: %w", ErrInvariant))
	}
	for i, ic := range card.Innings {
		if i >= len(m.Innings) {
			break
		}
		inn := &m.Innings[i]
		if ic.Runs != inn.TotalRuns || ic.Wickets != inn.Wickets {
			errs = append(errs, fmt.Errorf("card innings %d shows %d/%d, match %d/%d: %w",
				i+1, ic.Runs, ic.Wickets, inn.TotalRuns, inn.Wickets, ErrInvariant))
		}
		bowled := 0
		for _, row := range ic.Bowling {
			bowled += row.Runs
		}
		if bowled != ic.Runs {
			errs = append(errs, fmt.Errorf("card innings %d bowling adds to %d of %d: %w", i+1, bowled, ic.Runs, ErrInvariant))
		}
	}
	return errors.Join(errs...)
}
