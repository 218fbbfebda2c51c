package engine_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/cricscore/internal/domain/engine"
	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// randomBall draws a plausible delivery for the current state.
func randomBall(rng *rand.Rand, m model.Match, bowler string) model.DeliveryInput {
	in := ball(m, 0)
	in.BowlerID = bowler
	switch r := rng.Intn(20); {
	case r == 0:
		in.Extras = model.Extras{Wide: model.Runs(1 + rng.Intn(2))}
		in.CountsAsBall = false
	case r == 1:
		in.Extras = model.Extras{NoBall: model.Runs(1)}
		in.RunsOffBat = rng.Intn(7)
		in.CountsAsBall = false
	case r == 2:
		in.Extras = model.Extras{Bye: model.Runs(1 + rng.Intn(4))}
	case r == 3:
		in.Dismissal = &model.Dismissal{Type: types.Caught, PlayerOutID: in.StrikerID}
	case r == 4:
		in.RunsOffBat = rng.Intn(3)
		out := in.NonStrikerID
		if out == "" {
			out = in.StrikerID
		}
		in.Dismissal = &model.Dismissal{Type: types.RunOut, PlayerOutID: out}
	default:
		in.RunsOffBat = []int{0, 0, 1, 1, 2, 3, 4, 6}[rng.Intn(8)]
	}
	return in
}

// playOut scores a whole match, bringing in batsmen after wickets and
// changing bowlers each over, and checks the innings invariants after every ball.
func playOut(e *engine.Engine, rng *rand.Rand, m model.Match) model.Match {
	for steps := 0; !m.Completed() && steps < 2000; steps++ {
		inn := m.Current()
		bowlers := m.BowlingTeam(inn).Players
		bowler := bowlers[(inn.Balls/model.BallsPerOver)%len(bowlers)].ID

		var err error
		if m, err = e.RegisterBowler(m, bowler); err != nil {
			So(err, ShouldBeNil)
		}

		before := *m.Current()
		beforeInnings := m.CurrentInnings
		in := randomBall(rng, m, bowler)
		next, err := e.AddBall(m, in)
		if errors.Is(err, engine.ErrAllOut) {
			So(m.Current().Wickets, ShouldEqual, engine.MaxWickets(&m, m.Current()))
			break
		}
		So(err, ShouldBeNil)

		applied := next.Innings[beforeInnings-1]
		if in.CountsAsBall {
			So(applied.Balls, ShouldEqual, before.Balls+1)
		} else {
			So(applied.Balls, ShouldEqual, before.Balls)
		}
		checkInnings(&next, &applied)
		checkEconomy(before.Bowlers[bowler], applied.Bowlers[bowler], in.CountsAsBall)
		m = next

		if in.Dismissal != nil && m.CurrentInnings == beforeInnings && !m.Completed() {
			for _, p := range m.BattingTeam(m.Current()).Players {
				if _, batted := m.Current().Batsmen[p.ID]; !batted {
					m, err = e.RegisterBatsman(m, p.ID)
					So(err, ShouldBeNil)
					break
				}
			}
		}
	}
	return m
}

func checkInnings(m *model.Match, inn *model.Innings) {
	logged := 0
	for _, d := range inn.Deliveries {
		logged += d.RunsOffBat + d.Extras.Total()
	}
	So(inn.TotalRuns, ShouldEqual, logged)

	conceded := 0
	for _, b := range inn.Bowlers {
		conceded += b.Runs
	}
	So(conceded, ShouldEqual, inn.TotalRuns)

	for _, b := range inn.Batsmen {
		want := 0.0
		if b.Balls > 0 {
			want = math.Round(float64(b.Runs)/float64(b.Balls)*100*100) / 100
		}
		So(b.StrikeRate, ShouldEqual, want)
	}

	So(inn.Wickets, ShouldBeLessThanOrEqualTo, engine.MaxWickets(m, inn))
}

// checkEconomy expects the rate to be recomputed on a legal ball and left as
// it was on a wide or no-ball.
func checkEconomy(before, after *model.BowlerStats, legal bool) {
	So(after, ShouldNotBeNil)
	if !legal {
		So(before, ShouldNotBeNil)
		So(after.Economy, ShouldEqual, before.Economy)
		return
	}
	So(after.Balls, ShouldBeGreaterThan, 0)
	want := math.Round(float64(after.Runs*6)/float64(after.Balls)*100) / 100
	So(after.Economy, ShouldEqual, want)
}

func TestAddBall_Invariants(t *testing.T) {
	Convey("Given randomly scored matches of various shapes", t, func() {
		e := newEngine()
		for seed := int64(1); seed <= 12; seed++ {
			rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible testing
			overs := 1 + rng.Intn(5)
			perSide := 1 + rng.Intn(7)
			m := newMatch(e, overs, perSide)

			final := playOut(e, rng, m)

			Convey("Then match "+string(rune('A'+seed-1))+" ends within its limits", func() {
				for i := range final.Innings {
					inn := &final.Innings[i]
					So(inn.Balls, ShouldBeLessThanOrEqualTo, overs*model.BallsPerOver)
					So(inn.Wickets, ShouldBeLessThanOrEqualTo, engine.MaxWickets(&final, inn))
				}
				So(final.CurrentInnings, ShouldEqual, 2)
			})
		}
	})
}
