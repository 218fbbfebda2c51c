package engine

import (
	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/types"
)

// advance moves the match along after a legal ball:
// a successful chase ends it at once, otherwise overs or wickets running out
// closes the innings.
func advance(m *model.Match, inn *model.Innings) {
	if m.CurrentInnings == 2 && inn.TotalRuns >= m.Target() {
		m.Status = types.StatusCompleted
		return
	}

	oversCompleted := inn.Balls >= m.OversLimit*model.BallsPerOver
	allOut := inn.Wickets >= MaxWickets(m, inn)
	if !oversCompleted && !allOut {
		return
	}

	if m.CurrentInnings == 1 {
		m.CurrentInnings = 2
		return
	}
	m.Status = types.StatusCompleted
}
