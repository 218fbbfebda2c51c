package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/types"
	"github.com/okian/cricscore/pkg/logger"
)

// Outcome weights out of 100 for one delivery.
const (
	wideWeight   = 5
	noBallWeight = 3
	byeWeight    = 3
	wicketWeight = 6
	totalWeight  = 100
)

var batRuns = []int{0, 0, 0, 1, 1, 1, 2, 2, 3, 4, 4, 6} //nolint:gochecknoglobals // run distribution

var dismissals = []types.DismissalType{ //nolint:gochecknoglobals // dismissal distribution
	types.Bowled, types.Caught, types.Caught, types.LBW, types.Stumped, types.RunOut,
}

// matchTally counts what one simulated match did.
type matchTally struct {
	deliveries int
	wickets    int
	duplicates int
	undos      int
}

// player plays one seeded match through the API.
type player struct {
	client *HTTPClient
	cfg    *Config
	rng    *rand.Rand
	log    logger.Logger
	seq    int
	tally  matchTally
}

func newPlayer(client *HTTPClient, cfg *Config, seed int64) *player {
	return &player{
		client: client,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)), //nolint:gosec // reproducible runs
		log:    logger.Get().Named("simulate"),
	}
}

func squadOf(prefix string, n int) []model.Player {
	out := make([]model.Player, n)
	for i := range out {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		out[i] = model.Player{ID: id, Name: "Player " + id}
	}
	return out
}

// matchRequest is the body of POST /matches. The server assigns the id.
type matchRequest struct {
	OversLimit int        `json:"overs_limit"`
	TeamA      teamBody   `json:"team_a"`
	TeamB      teamBody   `json:"team_b"`
	Toss       model.Toss `json:"toss"`
}

type teamBody struct {
	Name    string         `json:"name"`
	Players []model.Player `json:"players"`
}

type playerBody struct {
	PlayerID string `json:"player_id"`
}

func (p *player) create(ctx context.Context) (model.Match, error) {
	toss := model.Toss{Winner: types.SideA, Decision: types.TossBat}
	if p.rng.IntN(2) == 1 {
		toss.Winner = types.SideB
	}
	if p.rng.IntN(2) == 1 {
		toss.Decision = types.TossField
	}
	req := matchRequest{
		OversLimit: p.cfg.Overs,
		TeamA:      teamBody{Name: "Lions", Players: squadOf("A", p.cfg.PlayersPerSide)},
		TeamB:      teamBody{Name: "Tigers", Players: squadOf("B", p.cfg.PlayersPerSide)},
		Toss:       toss,
	}
	var m model.Match
	if err := p.client.Post(ctx, "/matches", req, "", &m); err != nil {
		return model.Match{}, fmt.Errorf("create match: %w", err)
	}
	return m, nil
}

// play creates a match and bowls it to completion, checking every state the
// server returns.
func (p *player) play(ctx context.Context) (model.Match, error) {
	m, err := p.create(ctx)
	if err != nil {
		return model.Match{}, err
	}
	base := "/matches/" + m.ID

	for !m.Completed() {
		if err := ctx.Err(); err != nil {
			return m, err
		}
		if m, err = p.ensureBowler(ctx, base, m); err != nil {
			return m, err
		}

		in := p.delivery(&m)
		key := p.nextKey(m.ID)
		next, err := p.ball(ctx, base, key, in)
		if err != nil {
			return m, err
		}
		if err := VerifyMatch(next); err != nil {
			return next, fmt.Errorf("after ball %s: %w", key, err)
		}

		if p.chance(p.cfg.RetryRate) {
			if err := p.resend(ctx, base, key, in, next); err != nil {
				return next, err
			}
		}
		if in.Dismissal == nil && !next.Completed() && p.chance(p.cfg.UndoRate) {
			if next, err = p.undoAndReplay(ctx, base, key, m, in); err != nil {
				return next, err
			}
		}

		if in.Dismissal != nil {
			p.tally.wickets++
			if next, err = p.replaceBatsman(ctx, base, m, next); err != nil {
				return next, err
			}
		}
		m = next
	}
	return m, nil
}

func (p *player) ball(ctx context.Context, base, key string, in model.DeliveryInput) (model.Match, error) {
	var next model.Match
	if err := p.client.Post(ctx, base+"/balls", in, key, &next); err != nil {
		return model.Match{}, fmt.Errorf("ball %s: %w", key, err)
	}
	p.tally.deliveries++
	if p.cfg.Verbose {
		inn := next.Current()
		p.log.Info(ctx, "delivery",
			logger.String("key", key),
			logger.Int("runs", in.RunsOffBat+in.Extras.Total()),
			logger.Bool("wicket", in.Dismissal != nil),
			logger.String("score", fmt.Sprintf("%d/%d (%s)", inn.TotalRuns, inn.Wickets, inn.OversText())),
		)
	}
	return next, nil
}

// resend posts the same ball under the same key and expects nothing to move.
func (p *player) resend(ctx context.Context, base, key string, in model.DeliveryInput, want model.Match) error {
	var got model.Match
	if err := p.client.Post(ctx, base+"/balls", in, key, &got); err != nil {
		return fmt.Errorf("resend %s: %w", key, err)
	}
	p.tally.duplicates++
	if fingerprint(got) != fingerprint(want) {
		return fmt.Errorf("resend %s changed the match: %w", key, ErrInvariant)
	}
	return nil
}

// undoAndReplay takes the last ball back, checks the match is as it was, and
// scores the same ball again under the same key, which undo released.
func (p *player) undoAndReplay(ctx context.Context, base, key string, before model.Match, in model.DeliveryInput) (model.Match, error) {
	var undone model.Match
	if err := p.client.Post(ctx, base+"/undo", nil, "", &undone); err != nil {
		return model.Match{}, fmt.Errorf("undo: %w", err)
	}
	p.tally.undos++
	if fingerprint(undone) != fingerprint(before) {
		return undone, fmt.Errorf("undo did not restore the match: %w", ErrInvariant)
	}
	next, err := p.ball(ctx, base, key, in)
	if err != nil {
		return next, err
	}
	if fingerprint(next) == fingerprint(before) {
		return next, fmt.Errorf("replay of %s after undo was not scored: %w", key, ErrInvariant)
	}
	return next, nil
}

// replaceBatsman sends in the next unbatted player when the wicket left the
// innings open.
func (p *player) replaceBatsman(ctx context.Context, base string, before, after model.Match) (model.Match, error) {
	if after.Completed() || after.CurrentInnings != before.CurrentInnings {
		return after, nil
	}
	inn := after.Current()
	for _, pl := range after.BattingTeam(inn).Players {
		if _, batted := inn.Batsmen[pl.ID]; batted {
			continue
		}
		var next model.Match
		if err := p.client.Post(ctx, base+"/batsmen", playerBody{PlayerID: pl.ID}, "", &next); err != nil {
			return after, fmt.Errorf("register batsman %s: %w", pl.ID, err)
		}
		return next, nil
	}
	return after, fmt.Errorf("no batsman left with the innings open: %w", ErrInvariant)
}

// ensureBowler rotates the attack through the fielding side one over each.
func (p *player) ensureBowler(ctx context.Context, base string, m model.Match) (model.Match, error) {
	inn := m.Current()
	bowler := p.bowlerFor(&m)
	if _, ok := inn.Bowlers[bowler]; ok {
		return m, nil
	}
	var next model.Match
	if err := p.client.Post(ctx, base+"/bowlers", playerBody{PlayerID: bowler}, "", &next); err != nil {
		return m, fmt.Errorf("register bowler %s: %w", bowler, err)
	}
	return next, nil
}

func (p *player) bowlerFor(m *model.Match) string {
	inn := m.Current()
	squad := m.BowlingTeam(inn).Players
	return squad[(inn.Balls/model.BallsPerOver)%len(squad)].ID
}

// delivery draws the next ball for the current partnership.
func (p *player) delivery(m *model.Match) model.DeliveryInput {
	inn := m.Current()
	pair := inn.ActivePartnership()
	in := model.DeliveryInput{
		StrikerID:    pair.Batsman1ID,
		NonStrikerID: pair.Batsman2ID,
		BowlerID:     p.bowlerFor(m),
		CountsAsBall: true,
	}

	roll := p.rng.IntN(totalWeight)
	switch {
	case roll < wideWeight:
		in.Extras.Wide = model.Runs(1 + p.rng.IntN(2))
		in.CountsAsBall = false
	case roll < wideWeight+noBallWeight:
		in.Extras.NoBall = model.Runs(1)
		in.RunsOffBat = batRuns[p.rng.IntN(len(batRuns))]
		in.CountsAsBall = false
	case roll < wideWeight+noBallWeight+byeWeight:
		if p.rng.IntN(2) == 0 {
			in.Extras.Bye = model.Runs(1 + p.rng.IntN(4))
		} else {
			in.Extras.LegBye = model.Runs(1 + p.rng.IntN(4))
		}
	case roll < wideWeight+noBallWeight+byeWeight+wicketWeight:
		in.Dismissal = p.dismissal(m, in)
	default:
		in.RunsOffBat = batRuns[p.rng.IntN(len(batRuns))]
	}
	return in
}

func (p *player) dismissal(m *model.Match, in model.DeliveryInput) *model.Dismissal {
	inn := m.Current()
	fielders := m.BowlingTeam(inn).Players
	d := &model.Dismissal{Type: dismissals[p.rng.IntN(len(dismissals))], PlayerOutID: in.StrikerID}
	switch d.Type {
	case types.Caught, types.RunOut:
		d.FielderID = fielders[p.rng.IntN(len(fielders))].ID
	case types.Stumped:
		d.FielderID = fielders[len(fielders)-1].ID
	}
	if d.Type == types.RunOut && in.NonStrikerID != "" && p.rng.IntN(2) == 0 {
		d.PlayerOutID = in.NonStrikerID
	}
	return d
}

func (p *player) chance(rate float64) bool {
	return rate > 0 && p.rng.Float64() < rate
}

func (p *player) nextKey(matchID string) string {
	p.seq++
	return fmt.Sprintf("%s-%d", matchID, p.seq)
}

// fingerprint summarises a match for equality checks across requests.
func fingerprint(m model.Match) string {
	out := fmt.Sprintf("%s/%d", m.Status, m.CurrentInnings)
	for i := range m.Innings {
		inn := &m.Innings[i]
		out += fmt.Sprintf("|%d/%d/%d/%d/%d", inn.TotalRuns, inn.Wickets, inn.Balls, len(inn.Deliveries), len(inn.Partnerships))
	}
	return out
}
