package scorecard_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/cricscore/internal/domain/engine"
	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/scorecard"
	"github.com/okian/cricscore/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func squad(prefix string, n int) []model.Player {
	out := make([]model.Player, n)
	for i := range out {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		out[i] = model.Player{ID: id, Name: "Player " + id}
	}
	return out
}

func newMatch(perSide int) model.Match {
	m, err := engine.NewMatch(engine.Setup{
		ID:         "card-1",
		OversLimit: 1,
		TeamA:      engine.TeamSetup{Name: "Lions", Players: squad("A", perSide)},
		TeamB:      engine.TeamSetup{Name: "Tigers", Players: squad("B", perSide)},
		Toss:       model.Toss{Winner: types.SideA, Decision: types.TossBat},
	})
	So(err, ShouldBeNil)
	return m
}

func bowl(m model.Match, runs int, mutate ...func(*model.DeliveryInput)) model.Match {
	inn := m.Current()
	p := inn.ActivePartnership()
	in := model.DeliveryInput{
		StrikerID:    p.Batsman1ID,
		NonStrikerID: p.Batsman2ID,
		BowlerID:     m.BowlingTeam(inn).Players[0].ID,
		RunsOffBat:   runs,
		CountsAsBall: true,
	}
	for _, f := range mutate {
		f(&in)
	}
	next, err := engine.AddBall(m, in)
	So(err, ShouldBeNil)
	return next
}

func over(m model.Match, runs ...int) model.Match {
	for _, r := range runs {
		m = bowl(m, r)
	}
	return m
}

func TestResult(t *testing.T) {
	Convey("Given a one-over match between two-player sides", t, func() {
		m := newMatch(3)

		Convey("When the match is still live", func() {
			So(scorecard.Result(m).Text, ShouldEqual, "In progress")
			So(scorecard.Result(m).Winner, ShouldBeNil)
		})

		Convey("When the chase is completed", func() {
			m = over(m, 1, 0, 0, 0, 0, 0)
			m = over(m, 2)
			So(m.Completed(), ShouldBeTrue)

			out := scorecard.Result(m)
			So(out.Text, ShouldEqual, "Tigers won by 2 wickets")
			So(*out.Winner, ShouldEqual, types.SideB)
			So(out.IsTie, ShouldBeFalse)
		})

		Convey("When the chase falls short", func() {
			m = over(m, 4, 0, 0, 0, 0, 0)
			m = over(m, 1, 0, 0, 0, 0, 0)

			out := scorecard.Result(m)
			So(out.Text, ShouldEqual, "Lions won by 3 runs")
			So(out.Margin, ShouldEqual, "3 runs")
			So(*out.Winner, ShouldEqual, types.SideA)
		})

		Convey("When the scores finish level", func() {
			m = over(m, 2, 0, 0, 0, 0, 0)
			m = over(m, 2, 0, 0, 0, 0, 0)

			out := scorecard.Result(m)
			So(out.IsTie, ShouldBeTrue)
			So(out.Text, ShouldEqual, "Match tied")
		})

		Convey("When the margin is a single run", func() {
			m = over(m, 2, 0, 0, 0, 0, 0)
			m = over(m, 1, 0, 0, 0, 0, 0)
			So(scorecard.Result(m).Text, ShouldEqual, "Lions won by 1 run")
		})
	})
}

func TestBuild(t *testing.T) {
	Convey("Given a first innings with extras and a wicket", t, func() {
		m := newMatch(3)
		m = bowl(m, 4)
		m = bowl(m, 0, func(in *model.DeliveryInput) {
			in.Extras = model.Extras{Wide: model.Runs(1)}
			in.CountsAsBall = false
		})
		m = bowl(m, 0, func(in *model.DeliveryInput) {
			in.Dismissal = &model.Dismissal{Type: types.Caught, PlayerOutID: "A1", FielderID: "B2"}
		})
		m, err := engine.RegisterBatsman(m, "A3")
		So(err, ShouldBeNil)
		m = bowl(m, 0, func(in *model.DeliveryInput) { in.Extras = model.Extras{LegBye: model.Runs(2)} })

		Convey("When the card is built mid-innings", func() {
			c := scorecard.Build(m)

			Convey("Then only the first innings is shown", func() {
				So(c.Innings, ShouldHaveLength, 1)
				So(c.Result.Text, ShouldEqual, "In progress")
			})

			Convey("And the batting rows follow the order batsmen came in", func() {
				rows := c.Innings[0].Batting
				So(rows, ShouldHaveLength, 3)
				So(rows[0].PlayerID, ShouldEqual, "A1")
				So(rows[0].HowOut, ShouldEqual, "c Player B2 b Player B1")
				So(rows[0].Runs, ShouldEqual, 4)
				So(rows[1].PlayerID, ShouldEqual, "A2")
				So(rows[1].HowOut, ShouldEqual, "not out")
				So(rows[2].PlayerID, ShouldEqual, "A3")
			})

			Convey("And the extras are broken down", func() {
				e := c.Innings[0].Extras
				So(e.Wides, ShouldEqual, 1)
				So(e.LegByes, ShouldEqual, 2)
				So(e.Total, ShouldEqual, 3)
				So(c.Innings[0].Runs, ShouldEqual, 7)
				So(c.Innings[0].Overs, ShouldEqual, "0.3")
			})

			Convey("And the bowling row carries the figures", func() {
				So(c.Innings[0].Bowling, ShouldHaveLength, 1)
				b := c.Innings[0].Bowling[0]
				So(b.Runs, ShouldEqual, 7)
				So(b.Wickets, ShouldEqual, 1)
				So(b.Overs, ShouldEqual, "0.3")
				So(b.Economy, ShouldEqual, 14)
			})
		})

		Convey("When the second innings has started", func() {
			m = over(m, 0, 0, 0)
			m = bowl(m, 3)
			c := scorecard.Build(m)

			So(c.Innings, ShouldHaveLength, 2)
			So(c.Innings[1].BattingTeam, ShouldEqual, "Tigers")
			So(c.Innings[1].Target, ShouldEqual, 8)
			So(c.Innings[1].Required, ShouldEqual, 5)
			So(c.Innings[0].Target, ShouldEqual, 0)
		})
	})

	Convey("Given dismissals of every kind", t, func() {
		cases := []struct {
			d    model.Dismissal
			want string
		}{
			{model.Dismissal{Type: types.Bowled}, "b Player B1"},
			{model.Dismissal{Type: types.Caught, FielderID: "B1"}, "c & b Player B1"},
			{model.Dismissal{Type: types.LBW}, "lbw b Player B1"},
			{model.Dismissal{Type: types.Stumped, FielderID: "B3"}, "st Player B3 b Player B1"},
			{model.Dismissal{Type: types.HitWicket}, "hit wicket b Player B1"},
			{model.Dismissal{Type: types.RunOut, FielderID: "B2"}, "run out (Player B2)"},
			{model.Dismissal{Type: types.RunOut}, "run out"},
			{model.Dismissal{Type: types.Retired}, "retired"},
		}
		for _, tc := range cases {
			m := newMatch(3)
			d := tc.d
			d.PlayerOutID = "A1"
			m = bowl(m, 0, func(in *model.DeliveryInput) { in.Dismissal = &d })
			So(scorecard.Build(m).Innings[0].Batting[0].HowOut, ShouldEqual, tc.want)
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderText(t *testing.T) {
	Convey("Given a completed match", t, func() {
		m := newMatch(2)
		m = over(m, 6, 1, 0, 0, 0, 0)
		m = over(m, 4, 4)

		Convey("When it is rendered as text", func() {
			var buf bytes.Buffer
			So(scorecard.RenderText(&buf, scorecard.Build(m)), ShouldBeNil)
			out := buf.String()

			Convey("Then both innings and the result are present", func() {
				So(out, ShouldContainSubstring, "Match card-1 (1 overs)")
				So(out, ShouldContainSubstring, "Innings 1: Lions 7/0 (1.0 ov)")
				So(out, ShouldContainSubstring, "Innings 2: Tigers 8/0 (0.2 ov)")
				So(out, ShouldContainSubstring, "Target 8, need 0")
				So(out, ShouldContainSubstring, "Result: Tigers won by 1 wicket")
				So(out, ShouldContainSubstring, "Player A1")
			})
		})

		Convey("When the writer fails", func() {
			err := scorecard.RenderText(failingWriter{}, scorecard.Build(m))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "disk full")
		})
	})
}

func TestSummary(t *testing.T) {
	Convey("Given a fresh match", t, func() {
		m := newMatch(3)

		Convey("Then the summary shows the seeded lineup", func() {
			l := scorecard.Summary(m)
			So(l.MatchID, ShouldEqual, "card-1")
			So(l.BattingTeam, ShouldEqual, "Lions")
			So(l.Overs, ShouldEqual, "0.0")
			So(l.RunRate, ShouldEqual, 0)
			So(l.BowlerID, ShouldEqual, "B1")
			So(l.LastBall, ShouldBeNil)
			So(l.Partnership.Batsman1ID, ShouldEqual, "A1")
		})

		Convey("When bowlers change mid-innings", func() {
			var err error
			for _, id := range []string{"B2", "B3"} {
				m, err = engine.RegisterBowler(m, id)
				So(err, ShouldBeNil)
			}
			So(scorecard.Summary(m).BowlerID, ShouldEqual, "B3")

			m = bowl(m, 1, func(in *model.DeliveryInput) { in.BowlerID = "B2" })
			So(scorecard.Summary(m).BowlerID, ShouldEqual, "B2")

			m, err = engine.RegisterBowler(m, "B1")
			So(err, ShouldBeNil)
			So(scorecard.Summary(m).BowlerID, ShouldEqual, "B1")
			So(scorecard.Summary(m).LastBall.BowlerID, ShouldEqual, "B2")
		})

		Convey("When the chase is under way", func() {
			m = over(m, 4, 1, 0, 0, 0, 1)
			m = over(m, 2, 1)
			l := scorecard.Summary(m)

			So(l.CurrentInnings, ShouldEqual, 2)
			So(l.BattingTeam, ShouldEqual, "Tigers")
			So(l.Runs, ShouldEqual, 3)
			So(l.Target, ShouldEqual, 7)
			So(l.Required, ShouldEqual, 4)
			So(l.RunRate, ShouldEqual, 9)
			So(l.RequiredRate, ShouldEqual, 6)
			So(l.LastBall.RunsOffBat, ShouldEqual, 1)
			So(l.Result, ShouldEqual, "In progress")
		})
	})
}
