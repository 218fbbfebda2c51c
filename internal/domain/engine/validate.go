package engine

import (
	"github.com/okian/cricscore/internal/domain/model"
)

// Bat-run bounds for a single delivery.
const (
	minBatRuns = 0
	maxBatRuns = 6
)

// validate is the only step of AddBall that can fail. It never mutates.
func validate(m *model.Match, inn *model.Innings, in model.DeliveryInput) error {
	if m.Completed() {
		return ErrMatchCompleted
	}
	if inn.Wickets >= MaxWickets(m, inn) {
		return ErrAllOut
	}
	if in.RunsOffBat < minBatRuns || in.RunsOffBat > maxBatRuns {
		return ErrInvalidRuns
	}
	if in.Extras.IsWide() && in.RunsOffBat > 0 {
		return ErrInvalidWide
	}
	return nil
}

// MaxWickets is the number of wickets that ends inn: one fewer than the
// batting squad, but never less than one.
func MaxWickets(m *model.Match, inn *model.Innings) int {
	return max(len(m.BattingTeam(inn).Players)-1, 1)
}
