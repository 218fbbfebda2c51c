package engine

import (
	"math"

	"github.com/okian/cricscore/internal/domain/model"
)

// accumulate applies d to the innings totals and the striker and bowler
// records. It returns the runs the delivery added.
func accumulate(m *model.Match, inn *model.Innings, d model.Delivery) int {
	total := d.TotalRuns()
	inn.TotalRuns += total

	if d.CountsAsBall {
		bat := ensureBatsman(m, inn, d.StrikerID)
		bat.Runs += d.RunsOffBat
		bat.Balls++
		switch d.RunsOffBat {
		case 4:
			bat.Fours++
		case 6:
			bat.Sixes++
		}
		bat.StrikeRate = strikeRate(bat.Runs, bat.Balls)
	}

	bowler := ensureBowler(m, inn, d.BowlerID)
	bowler.Runs += total
	if d.CountsAsBall {
		bowler.Balls++
		bowler.Economy = economy(bowler.Runs, bowler.Balls)
	}

	if d.Dismissal != nil {
		inn.Wickets++
		ensureBatsman(m, inn, d.Dismissal.PlayerOutID).IsOut = true
		if d.Dismissal.Type.CreditsBowler() {
			bowler.Wickets++
		}
	}

	inn.Deliveries = append(inn.Deliveries, d)
	if d.CountsAsBall {
		inn.Balls++
	}
	return total
}

func strikeRate(runs, balls int) float64 {
	if balls == 0 {
		return 0
	}
	return round2(float64(runs) / float64(balls) * 100)
}

func economy(runs, balls int) float64 {
	if balls == 0 {
		return 0
	}
	return round2(float64(runs*model.BallsPerOver) / float64(balls))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ensureBatsman returns the batting record for id, opening one from the
// roster when the player has not batted yet.
func ensureBatsman(m *model.Match, inn *model.Innings, id string) *model.BatsmanStats {
	if inn.Batsmen == nil {
		inn.Batsmen = make(map[string]*model.BatsmanStats)
	}
	if b, ok := inn.Batsmen[id]; ok {
		return b
	}
	b := newBatsman(m.BattingTeam(inn), id)
	inn.Batsmen[id] = b
	return b
}

// ensureBowler returns the bowling record for id, opening one from the
// roster when the player has not bowled yet.
func ensureBowler(m *model.Match, inn *model.Innings, id string) *model.BowlerStats {
	if inn.Bowlers == nil {
		inn.Bowlers = make(map[string]*model.BowlerStats)
	}
	if b, ok := inn.Bowlers[id]; ok {
		return b
	}
	b := newBowler(m.BowlingTeam(inn), id)
	inn.Bowlers[id] = b
	return b
}

func newBatsman(team model.Team, id string) *model.BatsmanStats {
	name := id
	if p, ok := team.Player(id); ok {
		name = p.Name
	}
	return &model.BatsmanStats{PlayerID: id, Name: name}
}

func newBowler(team model.Team, id string) *model.BowlerStats {
	name := id
	if p, ok := team.Player(id); ok {
		name = p.Name
	}
	return &model.BowlerStats{PlayerID: id, Name: name}
}
