// Package engine is the match-scoring rules processor. It takes one delivery
// at a time and returns the match state that results from it.
//
// Every operation works on its own deep copy of the match it is given, so
// the caller's value is never changed. Undo is therefore just holding on to
// an earlier value. The engine keeps no state between calls apart from its
// clock and is not safe for concurrent use on the same match value.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/types"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock sets the time source used to stamp deliveries and new matches.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine applies scoring rules to match values.
type Engine struct {
	now func() time.Time
}

// New creates an engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New() //nolint:gochecknoglobals // stateless default for package-level helpers

// AddBall applies one delivery using the default engine.
func AddBall(m model.Match, in model.DeliveryInput) (model.Match, error) {
	return defaultEngine.AddBall(m, in)
}

// AddBall validates in against m and, if it is legal, returns the match with
// the delivery applied: stats accumulated, partnership credited, strike
// rotated and the innings or match closed when it is over.
//
// On error the zero Match is returned and m is unaffected.
func (e *Engine) AddBall(m model.Match, in model.DeliveryInput) (model.Match, error) {
	const op = "engine.add_ball"
	if m.CurrentInnings < 1 || m.CurrentInnings > 2 {
		return model.Match{}, fmt.Errorf("%s: current innings %d: %w", op, m.CurrentInnings, ErrInvalidSetup)
	}
	if err := validate(&m, m.Current(), in); err != nil {
		return model.Match{}, fmt.Errorf("%s: %w", op, err)
	}

	next := m.Clone()
	inn := next.Current()
	d := build(inn, in, e.now())
	inn.CurrentBowlerID = d.BowlerID

	runs := accumulate(&next, inn, d)
	recordPartnership(inn, runs, d.CountsAsBall)

	if d.CountsAsBall {
		rotateStrike(inn, d.RunsOffBat)
		advance(&next, inn)
	}
	return next, nil
}

// Setup describes a match before the first ball.
type Setup struct {
	ID         string
	OversLimit int
	TeamA      TeamSetup
	TeamB      TeamSetup
	Toss       model.Toss
}

// TeamSetup is a team name and its batting order.
type TeamSetup struct {
	Name    string
	Players []model.Player
}

// NewMatch builds a live match with both innings seeded: the first two
// players of each batting order open and the first player of each fielding
// side bowls the first over.
func (e *Engine) NewMatch(s Setup) (model.Match, error) {
	const op = "engine.new_match"
	if err := s.validate(); err != nil {
		return model.Match{}, fmt.Errorf("%s: %w", op, err)
	}

	teams := model.Teams{
		A: model.Team{Side: types.SideA, Name: teamName(s.TeamA.Name, types.SideA), Players: append([]model.Player(nil), s.TeamA.Players...)},
		B: model.Team{Side: types.SideB, Name: teamName(s.TeamB.Name, types.SideB), Players: append([]model.Player(nil), s.TeamB.Players...)},
	}

	first := s.Toss.Winner
	if s.Toss.Decision == types.TossField {
		first = first.Other()
	}

	return model.Match{
		ID:         s.ID,
		OversLimit: s.OversLimit,
		Teams:      teams,
		Toss:       s.Toss,
		Innings: [2]model.Innings{
			openInnings(teams, first),
			openInnings(teams, first.Other()),
		},
		CurrentInnings: 1,
		Status:         types.StatusLive,
		CreatedAt:      e.now(),
	}, nil
}

// NewMatch builds a match using the default engine.
func NewMatch(s Setup) (model.Match, error) {
	return defaultEngine.NewMatch(s)
}

func (s Setup) validate() error {
	if s.OversLimit <= 0 {
		return fmt.Errorf("overs limit must be positive: %w", ErrInvalidSetup)
	}
	if !s.Toss.Winner.Valid() {
		return fmt.Errorf("toss winner %q: %w", s.Toss.Winner, ErrInvalidSetup)
	}
	if !s.Toss.Decision.Valid() {
		return fmt.Errorf("toss decision %q: %w", s.Toss.Decision, ErrInvalidSetup)
	}
	for _, t := range []TeamSetup{s.TeamA, s.TeamB} {
		if len(t.Players) == 0 {
			return fmt.Errorf("team %q has no players: %w", t.Name, ErrInvalidSetup)
		}
		seen := make(map[string]struct{}, len(t.Players))
		for _, p := range t.Players {
			if strings.TrimSpace(p.ID) == "" {
				return fmt.Errorf("team %q has a player without id: %w", t.Name, ErrInvalidSetup)
			}
			if _, dup := seen[p.ID]; dup {
				return fmt.Errorf("duplicate player id %q: %w", p.ID, ErrInvalidSetup)
			}
			seen[p.ID] = struct{}{}
		}
	}
	return nil
}

func teamName(name string, side types.Side) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "Team " + string(side)
}

func openInnings(teams model.Teams, batting types.Side) model.Innings {
	bat := teams.Get(batting)
	bowl := teams.Get(batting.Other())

	inn := model.Innings{
		BattingTeam: batting,
		BowlingTeam: batting.Other(),
		Deliveries:  []model.Delivery{},
		Batsmen:     make(map[string]*model.BatsmanStats),
		Bowlers:     make(map[string]*model.BowlerStats),
	}

	opening := model.Partnership{Batsman1ID: bat.Players[0].ID}
	inn.Batsmen[opening.Batsman1ID] = newBatsman(bat, opening.Batsman1ID)
	if len(bat.Players) > 1 {
		opening.Batsman2ID = bat.Players[1].ID
		inn.Batsmen[opening.Batsman2ID] = newBatsman(bat, opening.Batsman2ID)
	}
	inn.Partnerships = []model.Partnership{opening}

	opener := bowl.Players[0].ID
	inn.Bowlers[opener] = newBowler(bowl, opener)
	inn.CurrentBowlerID = opener
	return inn
}

// RegisterBatsman sends playerID in after a wicket. The new partnership pairs
// the surviving batsman, who keeps the strike, with the newcomer.
func (e *Engine) RegisterBatsman(m model.Match, playerID string) (model.Match, error) {
	const op = "engine.register_batsman"
	if m.Completed() {
		return model.Match{}, fmt.Errorf("%s: %w", op, ErrMatchCompleted)
	}
	inn := m.Current()
	if _, ok := m.BattingTeam(inn).Player(playerID); !ok {
		return model.Match{}, fmt.Errorf("%s: %q: %w", op, playerID, ErrUnknownPlayer)
	}
	if _, ok := inn.Batsmen[playerID]; ok {
		return model.Match{}, fmt.Errorf("%s: %q: %w", op, playerID, ErrAlreadyBatted)
	}
	if inn.Wickets >= MaxWickets(&m, inn) {
		return model.Match{}, fmt.Errorf("%s: %w", op, ErrAllOut)
	}

	survivor, ok := survivingBatsman(inn)
	if !ok {
		return model.Match{}, fmt.Errorf("%s: %w", op, ErrCreaseOccupied)
	}

	next := m.Clone()
	ni := next.Current()
	ensureBatsman(&next, ni, playerID)
	pair := model.Partnership{Batsman1ID: survivor, Batsman2ID: playerID}
	if survivor == "" {
		pair = model.Partnership{Batsman1ID: playerID}
	}
	ni.Partnerships = append(ni.Partnerships, pair)
	return next, nil
}

// RegisterBatsman sends a new batsman in using the default engine.
func RegisterBatsman(m model.Match, playerID string) (model.Match, error) {
	return defaultEngine.RegisterBatsman(m, playerID)
}

// survivingBatsman finds who stays at the crease from the active pair. It
// fails when neither batsman of a full pair is out.
func survivingBatsman(inn *model.Innings) (string, bool) {
	p := inn.ActivePartnership()
	if p == nil {
		return "", true
	}
	var in []string
	vacancy := false
	for _, id := range []string{p.Batsman1ID, p.Batsman2ID} {
		if id == "" {
			vacancy = true
			continue
		}
		if b, ok := inn.Batsmen[id]; ok && b.IsOut {
			vacancy = true
			continue
		}
		in = append(in, id)
	}
	if !vacancy {
		return "", false
	}
	if len(in) == 0 {
		return "", true
	}
	return in[0], true
}

// RegisterBowler makes playerID available to bowl in the current innings.
// A bowler who already has figures keeps them and becomes the current bowler.
func (e *Engine) RegisterBowler(m model.Match, playerID string) (model.Match, error) {
	const op = "engine.register_bowler"
	if m.Completed() {
		return model.Match{}, fmt.Errorf("%s: %w", op, ErrMatchCompleted)
	}
	inn := m.Current()
	if _, ok := m.BowlingTeam(inn).Player(playerID); !ok {
		return model.Match{}, fmt.Errorf("%s: %q: %w", op, playerID, ErrUnknownPlayer)
	}

	next := m.Clone()
	ni := next.Current()
	ensureBowler(&next, ni, playerID)
	ni.CurrentBowlerID = playerID
	return next, nil
}

// RegisterBowler registers a bowler using the default engine.
func RegisterBowler(m model.Match, playerID string) (model.Match, error) {
	return defaultEngine.RegisterBowler(m, playerID)
}
