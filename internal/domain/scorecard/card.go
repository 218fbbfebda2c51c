package scorecard

import (
	"fmt"

	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/types"
)

// Card is the full scorecard of a match.
type Card struct {
	MatchID    string        `json:"match_id"`
	OversLimit int           `json:"overs_limit"`
	Status     types.Status  `json:"status"`
	Innings    []InningsCard `json:"innings"`
	Result     Outcome       `json:"result"`
}

// InningsCard summarises one innings.
type InningsCard struct {
	Number      int          `json:"number"`
	BattingTeam string       `json:"batting_team"`
	BowlingTeam string       `json:"bowling_team"`
	Runs        int          `json:"runs"`
	Wickets     int          `json:"wickets"`
	Overs       string       `json:"overs"`
	Extras      ExtrasLine   `json:"extras"`
	Batting     []BattingRow `json:"batting"`
	Bowling     []BowlingRow `json:"bowling"`
	Target      int          `json:"target,omitempty"`
	Required    int          `json:"required,omitempty"`
}

// ExtrasLine breaks down the extras conceded in an innings.
type ExtrasLine struct {
	Wides      int `json:"wides"`
	NoBalls    int `json:"no_balls"`
	Byes       int `json:"byes"`
	LegByes    int `json:"leg_byes"`
	Overthrows int `json:"overthrows"`
	Penalties  int `json:"penalties"`
	Total      int `json:"total"`
}

// BattingRow is one batsman's line.
type BattingRow struct {
	PlayerID   string  `json:"player_id"`
	Name       string  `json:"name"`
	HowOut     string  `json:"how_out"`
	Runs       int     `json:"runs"`
	Balls      int     `json:"balls"`
	Fours      int     `json:"fours"`
	Sixes      int     `json:"sixes"`
	StrikeRate float64 `json:"strike_rate"`
}

// BowlingRow is one bowler's line.
type BowlingRow struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Overs    string  `json:"overs"`
	Maidens  int     `json:"maidens"`
	Runs     int     `json:"runs"`
	Wickets  int     `json:"wickets"`
	Economy  float64 `json:"economy"`
}

// Build assembles the scorecard. The second innings is included once it has
// started.
func Build(m model.Match) Card {
	c := Card{
		MatchID:    m.ID,
		OversLimit: m.OversLimit,
		Status:     m.Status,
		Result:     Result(m),
	}
	for i := range m.Innings {
		if i > 0 && m.CurrentInnings < 2 {
			break
		}
		c.Innings = append(c.Innings, buildInnings(&m, i))
	}
	return c
}

func buildInnings(m *model.Match, i int) InningsCard {
	inn := &m.Innings[i]
	ic := InningsCard{
		Number:      i + 1,
		BattingTeam: m.BattingTeam(inn).Name,
		BowlingTeam: m.BowlingTeam(inn).Name,
		Runs:        inn.TotalRuns,
		Wickets:     inn.Wickets,
		Overs:       inn.OversText(),
		Extras:      extrasLine(inn),
	}
	if i == 1 {
		ic.Target = m.Target()
		ic.Required = max(ic.Target-inn.TotalRuns, 0)
	}

	bowling := m.BowlingTeam(inn)
	dismissals := dismissalsByPlayer(inn)
	for _, id := range battingOrder(inn) {
		b, ok := inn.Batsmen[id]
		if !ok {
			continue
		}
		ic.Batting = append(ic.Batting, BattingRow{
			PlayerID:   b.PlayerID,
			Name:       b.Name,
			HowOut:     howOut(b, dismissals[id], bowling),
			Runs:       b.Runs,
			Balls:      b.Balls,
			Fours:      b.Fours,
			Sixes:      b.Sixes,
			StrikeRate: b.StrikeRate,
		})
	}
	for _, id := range bowlingOrder(inn, bowling) {
		b := inn.Bowlers[id]
		ic.Bowling = append(ic.Bowling, BowlingRow{
			PlayerID: b.PlayerID,
			Name:     b.Name,
			Overs:    model.FormatOvers(b.Balls),
			Maidens:  b.Maidens,
			Runs:     b.Runs,
			Wickets:  b.Wickets,
			Economy:  b.Economy,
		})
	}
	return ic
}

func extrasLine(inn *model.Innings) ExtrasLine {
	var l ExtrasLine
	add := func(dst *int, v *int) {
		if v != nil {
			*dst += *v
		}
	}
	for _, d := range inn.Deliveries {
		add(&l.Wides, d.Extras.Wide)
		add(&l.NoBalls, d.Extras.NoBall)
		add(&l.Byes, d.Extras.Bye)
		add(&l.LegByes, d.Extras.LegBye)
		add(&l.Overthrows, d.Extras.Overthrow)
		add(&l.Penalties, d.Extras.Penalty)
		l.Total += d.Extras.Total()
	}
	return l
}

// battingOrder lists batsmen in the order they came to the crease.
func battingOrder(inn *model.Innings) []string {
	seen := make(map[string]struct{}, len(inn.Batsmen))
	order := make([]string, 0, len(inn.Batsmen))
	for _, p := range inn.Partnerships {
		for _, id := range []string{p.Batsman1ID, p.Batsman2ID} {
			if _, dup := seen[id]; id == "" || dup {
				continue
			}
			seen[id] = struct{}{}
			order = append(order, id)
		}
	}
	for _, d := range inn.Deliveries {
		if _, dup := seen[d.StrikerID]; d.StrikerID != "" && !dup {
			seen[d.StrikerID] = struct{}{}
			order = append(order, d.StrikerID)
		}
	}
	return order
}

// bowlingOrder lists bowlers by their first delivery, then those registered
// without having bowled yet in squad order.
func bowlingOrder(inn *model.Innings, team model.Team) []string {
	seen := make(map[string]struct{}, len(inn.Bowlers))
	order := make([]string, 0, len(inn.Bowlers))
	push := func(id string) {
		if _, ok := inn.Bowlers[id]; !ok {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	for _, d := range inn.Deliveries {
		push(d.BowlerID)
	}
	for _, p := range team.Players {
		push(p.ID)
	}
	return order
}

func dismissalsByPlayer(inn *model.Innings) map[string]model.Delivery {
	out := make(map[string]model.Delivery)
	for _, d := range inn.Deliveries {
		if d.Dismissal != nil {
			out[d.Dismissal.PlayerOutID] = d
		}
	}
	return out
}

func howOut(b *model.BatsmanStats, d model.Delivery, fielding model.Team) string {
	if !b.IsOut || d.Dismissal == nil {
		return "not out"
	}
	name := func(id string) string {
		if p, ok := fielding.Player(id); ok {
			return p.Name
		}
		return id
	}
	bowler := name(d.BowlerID)
	fielder := name(d.Dismissal.FielderID)

	switch d.Dismissal.Type {
	case types.Bowled:
		return "b " + bowler
	case types.Caught:
		if d.Dismissal.FielderID == "" || d.Dismissal.FielderID == d.BowlerID {
			return fmt.Sprintf("c & b %s", bowler)
		}
		return fmt.Sprintf("c %s b %s", fielder, bowler)
	case types.LBW:
		return "lbw b " + bowler
	case types.Stumped:
		return fmt.Sprintf("st %s b %s", fielder, bowler)
	case types.HitWicket:
		return "hit wicket b " + bowler
	case types.RunOut:
		if d.Dismissal.FielderID == "" {
			return "run out"
		}
		return fmt.Sprintf("run out (%s)", fielder)
	case types.Retired:
		return "retired"
	default:
		return string(d.Dismissal.Type)
	}
}
