package model

import (
	"time"

	"github.com/okian/cricscore/internal/domain/types"
)

// Extras holds runs not scored off the bat. Wide and NoBall already include
// the mandatory one-run penalty. A nil field means none of that kind.
type Extras struct {
	Wide      *int `json:"wide,omitempty"`
	NoBall    *int `json:"no_ball,omitempty"`
	Bye       *int `json:"bye,omitempty"`
	LegBye    *int `json:"leg_bye,omitempty"`
	Overthrow *int `json:"overthrow,omitempty"`
	Penalty   *int `json:"penalty,omitempty"`
}

// Total sums every present extras field.
func (e Extras) Total() int {
	total := 0
	for _, v := range []*int{e.Wide, e.NoBall, e.Bye, e.LegBye, e.Overthrow, e.Penalty} {
		if v != nil {
			total += *v
		}
	}
	return total
}

// IsWide reports whether the delivery was called wide.
func (e Extras) IsWide() bool {
	return e.Wide != nil && *e.Wide != 0
}

// Runs returns a pointer to n, for building Extras literals.
func Runs(n int) *int { return &n }

// Dismissal describes a wicket.
type Dismissal struct {
	Type        types.DismissalType `json:"type"`
	PlayerOutID string              `json:"player_out_id"`
	FielderID   string              `json:"fielder_id,omitempty"`
}

// DeliveryInput is a delivery as supplied by the scorer, before the engine
// stamps its position and time.
type DeliveryInput struct {
	StrikerID    string     `json:"striker_id"`
	NonStrikerID string     `json:"non_striker_id"`
	BowlerID     string     `json:"bowler_id"`
	RunsOffBat   int        `json:"runs_off_bat"`
	Extras       Extras     `json:"extras"`
	Dismissal    *Dismissal `json:"dismissal,omitempty"`
	CountsAsBall bool       `json:"counts_as_ball"`
}

// Delivery is one bowled event, legal or not.
type Delivery struct {
	Over         int        `json:"over"`         // 0-based
	BallInOver   int        `json:"ball_in_over"` // 1-6 for legal balls
	StrikerID    string     `json:"striker_id"`
	NonStrikerID string     `json:"non_striker_id"`
	BowlerID     string     `json:"bowler_id"`
	RunsOffBat   int        `json:"runs_off_bat"`
	Extras       Extras     `json:"extras"`
	Dismissal    *Dismissal `json:"dismissal,omitempty"`
	CountsAsBall bool       `json:"counts_as_ball"`
	Timestamp    time.Time  `json:"timestamp"`
}

// TotalRuns is everything the delivery added to the innings.
func (d Delivery) TotalRuns() int {
	return d.RunsOffBat + d.Extras.Total()
}
