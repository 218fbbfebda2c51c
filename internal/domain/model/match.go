// Package model contains the match state passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/okian/cricscore/internal/domain/types"
)

// Player is a squad member.
type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IsSubstitute bool   `json:"is_substitute,omitempty"`
}

// Team is one side's squad; any positive number of players is allowed.
type Team struct {
	Side    types.Side `json:"side"`
	Name    string     `json:"name"`
	Players []Player   `json:"players"`
}

// Player looks up a squad member by id.
func (t Team) Player(id string) (Player, bool) {
	for _, p := range t.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Teams holds both sides of a match.
type Teams struct {
	A Team `json:"A"`
	B Team `json:"B"`
}

// Get returns the team playing as side.
func (t Teams) Get(side types.Side) Team {
	if side == types.SideB {
		return t.B
	}
	return t.A
}

// Toss records the toss outcome.
type Toss struct {
	Winner   types.Side         `json:"winner"`
	Decision types.TossDecision `json:"decision"`
}

// Match is the full scoring state of one game.
type Match struct {
	ID             string       `json:"id"`
	OversLimit     int          `json:"overs_limit"`
	Teams          Teams        `json:"teams"`
	Toss           Toss         `json:"toss"`
	Innings        [2]Innings   `json:"innings"`
	CurrentInnings int          `json:"current_innings"` // 1 or 2
	Status         types.Status `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Current returns a pointer to the innings in progress.
func (m *Match) Current() *Innings {
	return &m.Innings[m.CurrentInnings-1]
}

// BattingTeam returns the team batting in inn.
func (m *Match) BattingTeam(inn *Innings) Team {
	return m.Teams.Get(inn.BattingTeam)
}

// BowlingTeam returns the team fielding in inn.
func (m *Match) BowlingTeam(inn *Innings) Team {
	return m.Teams.Get(inn.BowlingTeam)
}

// Target is the score the second innings must reach to win.
func (m *Match) Target() int {
	return m.Innings[0].TotalRuns + 1
}

// Completed reports whether the match has finished.
func (m *Match) Completed() bool {
	return m.Status == types.StatusCompleted
}

// Innings is one side's turn at batting.
type Innings struct {
	BattingTeam  types.Side               `json:"batting_team"`
	BowlingTeam  types.Side               `json:"bowling_team"`
	TotalRuns    int                      `json:"total_runs"`
	Wickets      int                      `json:"wickets"`
	Balls        int                      `json:"balls"` // legal balls only
	Deliveries   []Delivery               `json:"deliveries"`
	Batsmen      map[string]*BatsmanStats `json:"batsmen"`
	Bowlers      map[string]*BowlerStats  `json:"bowlers"`
	Partnerships []Partnership            `json:"partnerships"`

	// CurrentBowlerID is the bowler of the last delivery, or the last one
	// brought into the attack since.
	CurrentBowlerID string `json:"current_bowler_id,omitempty"`
}

// ActivePartnership returns the current pair, or nil before any partnership exists.
func (inn *Innings) ActivePartnership() *Partnership {
	if len(inn.Partnerships) == 0 {
		return nil
	}
	return &inn.Partnerships[len(inn.Partnerships)-1]
}

// OversText formats legal balls as completed overs and balls, e.g. "3.4".
func (inn *Innings) OversText() string {
	return FormatOvers(inn.Balls)
}

// FormatOvers renders a legal ball count in cricket notation.
func FormatOvers(balls int) string {
	return fmt.Sprintf("%d.%d", balls/BallsPerOver, balls%BallsPerOver)
}

// BallsPerOver is the number of legal deliveries in an over.
const BallsPerOver = 6

// BatsmanStats is a batting line.
type BatsmanStats struct {
	PlayerID   string  `json:"player_id"`
	Name       string  `json:"name"`
	Runs       int     `json:"runs"`
	Balls      int     `json:"balls"`
	Fours      int     `json:"fours"`
	Sixes      int     `json:"sixes"`
	StrikeRate float64 `json:"strike_rate"`
	IsOut      bool    `json:"is_out"`
}

// BowlerStats is a bowling line. Maidens is carried but not computed.
type BowlerStats struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Balls    int     `json:"balls"`
	Runs     int     `json:"runs"`
	Wickets  int     `json:"wickets"`
	Maidens  int     `json:"maidens"`
	Economy  float64 `json:"economy"`
}

// Partnership tracks the current pair. Batsman1ID is on strike.
type Partnership struct {
	Batsman1ID string `json:"batsman1_id"`
	Batsman2ID string `json:"batsman2_id"`
	Runs       int    `json:"runs"`
	Balls      int    `json:"balls"`
}
