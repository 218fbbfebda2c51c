package scorecard

import (
	"math"

	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/types"
)

// Live is the compact scoreboard pushed to live feed subscribers.
type Live struct {
	MatchID        string             `json:"match_id"`
	Status         types.Status       `json:"status"`
	CurrentInnings int                `json:"current_innings"`
	BattingTeam    string             `json:"batting_team"`
	Runs           int                `json:"runs"`
	Wickets        int                `json:"wickets"`
	Overs          string             `json:"overs"`
	OversLimit     int                `json:"overs_limit"`
	RunRate        float64            `json:"run_rate"`
	Target         int                `json:"target,omitempty"`
	Required       int                `json:"required,omitempty"`
	RequiredRate   float64            `json:"required_rate,omitempty"`
	Partnership    *model.Partnership `json:"partnership,omitempty"`
	BowlerID       string             `json:"bowler_id,omitempty"`
	LastBall       *model.Delivery    `json:"last_ball,omitempty"`
	Result         string             `json:"result"`
}

// Summary builds the live scoreboard for the innings in progress.
func Summary(m model.Match) Live {
	inn := m.Current()
	l := Live{
		MatchID:        m.ID,
		Status:         m.Status,
		CurrentInnings: m.CurrentInnings,
		BattingTeam:    m.BattingTeam(inn).Name,
		Runs:           inn.TotalRuns,
		Wickets:        inn.Wickets,
		Overs:          inn.OversText(),
		OversLimit:     m.OversLimit,
		RunRate:        rate(inn.TotalRuns, inn.Balls),
		Result:         Result(m).Text,
	}
	if m.CurrentInnings == 2 {
		l.Target = m.Target()
		l.Required = max(l.Target-inn.TotalRuns, 0)
		l.RequiredRate = rate(l.Required, m.OversLimit*model.BallsPerOver-inn.Balls)
	}
	if p := inn.ActivePartnership(); p != nil {
		cp := *p
		l.Partnership = &cp
	}
	if n := len(inn.Deliveries); n > 0 {
		last := inn.Deliveries[n-1].Clone()
		l.LastBall = &last
	}
	l.BowlerID = currentBowler(inn)
	return l
}

// currentBowler falls back to the last delivery for innings stored before
// the current bowler was tracked.
func currentBowler(inn *model.Innings) string {
	if inn.CurrentBowlerID != "" {
		return inn.CurrentBowlerID
	}
	if n := len(inn.Deliveries); n > 0 {
		return inn.Deliveries[n-1].BowlerID
	}
	return ""
}

// rate is runs per over over balls, rounded to two decimals.
func rate(runs, balls int) float64 {
	if balls <= 0 {
		return 0
	}
	return math.Round(float64(runs*model.BallsPerOver)/float64(balls)*100) / 100
}
