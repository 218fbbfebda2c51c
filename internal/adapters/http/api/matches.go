package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/cricscore/internal/domain/engine"
	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/scorecard"
	"github.com/okian/cricscore/internal/domain/types"
	"github.com/okian/cricscore/pkg/logger"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxBodyBytes      = 1 << 20
)

// teamRequest is one side of POST /matches.
type teamRequest struct {
	Name    string         `json:"name"`
	Players []model.Player `json:"players"`
}

// createMatchRequest mirrors the OpenAPI schema for POST /matches.
type createMatchRequest struct {
	ID         string      `json:"id"`
	OversLimit int         `json:"overs_limit"`
	TeamA      teamRequest `json:"team_a"`
	TeamB      teamRequest `json:"team_b"`
	Toss       model.Toss  `json:"toss"`
}

func (c createMatchRequest) setup() engine.Setup {
	return engine.Setup{
		ID:         strings.TrimSpace(c.ID),
		OversLimit: c.OversLimit,
		TeamA:      engine.TeamSetup{Name: c.TeamA.Name, Players: c.TeamA.Players},
		TeamB:      engine.TeamSetup{Name: c.TeamB.Name, Players: c.TeamB.Players},
		Toss: model.Toss{
			Winner:   types.Side(strings.ToUpper(string(c.Toss.Winner))),
			Decision: types.TossDecision(strings.ToUpper(string(c.Toss.Decision))),
		},
	}
}

// ballRequest is a delivery plus an optional idempotency key.
type ballRequest struct {
	Key string `json:"key"`
	model.DeliveryInput
}

type playerRequest struct {
	PlayerID string `json:"player_id"`
}

// MatchesHandler serves the match scoring routes.
type MatchesHandler struct {
	deps   Dependencies
	live   LiveServer
	logger logger.Logger
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps Dependencies, live LiveServer) *MatchesHandler {
	return &MatchesHandler{deps: deps, live: live, logger: logger.Get().Named("api")}
}

// HandleCreate handles POST /matches.
func (h *MatchesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	m, err := h.deps.CreateMatch(r.Context(), req.setup())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/matches/"+m.ID)
	writeJSON(w, http.StatusCreated, m)
}

// HandleGet handles GET /matches/{id}.
func (h *MatchesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.Match(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleAddBall handles POST /matches/{id}/balls. The Idempotency-Key header
// wins over the key field of the body.
func (h *MatchesHandler) HandleAddBall(w http.ResponseWriter, r *http.Request) {
	var req ballRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key == "" {
		key = strings.TrimSpace(req.Key)
	}
	m, err := h.deps.AddBall(r.Context(), chi.URLParam(r, "id"), key, req.DeliveryInput)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleUndo handles POST /matches/{id}/undo.
func (h *MatchesHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.Undo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleRegisterBatsman handles POST /matches/{id}/batsmen.
func (h *MatchesHandler) HandleRegisterBatsman(w http.ResponseWriter, r *http.Request) {
	h.lineup(w, r, h.deps.RegisterBatsman)
}

// HandleRegisterBowler handles POST /matches/{id}/bowlers.
func (h *MatchesHandler) HandleRegisterBowler(w http.ResponseWriter, r *http.Request) {
	h.lineup(w, r, h.deps.RegisterBowler)
}

type lineupFunc func(ctx context.Context, id, playerID string) (model.Match, error)

func (h *MatchesHandler) lineup(w http.ResponseWriter, r *http.Request, register lineupFunc) {
	var req playerRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		writeFailure(w, ErrMissingID)
		return
	}
	m, err := register(r.Context(), chi.URLParam(r, "id"), playerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleScorecard handles GET /matches/{id}/scorecard. ?format=text returns
// the plain-text export.
func (h *MatchesHandler) HandleScorecard(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "text" {
		writeFailure(w, fmt.Errorf("%w: %q", ErrUnsupported, format))
		return
	}
	card, err := h.deps.Scorecard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if format != "text" {
		writeJSON(w, http.StatusOK, card)
		return
	}

	var buf bytes.Buffer
	if err := scorecard.RenderText(&buf, card); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleHistory handles GET /history.
func (h *MatchesHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	matches, err := h.deps.History(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Matches: summaries(matches), Count: len(matches)})
}

// HandleLive handles GET /matches/{id}/live by upgrading to a websocket
// that receives a snapshot followed by every change.
func (h *MatchesHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.live == nil {
		http.NotFound(w, r)
		return
	}
	if _, err := h.deps.Live(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	h.live.Serve(w, r, id, func() (any, error) {
		return h.deps.Live(ctx, id)
	})
}

// fail writes the error response and logs anything that is not a client
// mistake.
func (h *MatchesHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= statusInternalError {
		h.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("code", code),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

type historyEntry struct {
	MatchID     string        `json:"match_id"`
	Teams       [2]string     `json:"teams"`
	Result      string        `json:"result"`
	CompletedAt time.Time     `json:"completed_at"`
	Innings     []scoreSimple `json:"innings"`
}

type scoreSimple struct {
	Team    string `json:"team"`
	Runs    int    `json:"runs"`
	Wickets int    `json:"wickets"`
	Overs   string `json:"overs"`
}

type historyResponse struct {
	Matches []historyEntry `json:"matches"`
	Count   int            `json:"count"`
}

func summaries(matches []model.Match) []historyEntry {
	out := make([]historyEntry, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		e := historyEntry{
			MatchID: m.ID,
			Teams:   [2]string{m.Teams.A.Name, m.Teams.B.Name},
			Result:  scorecard.Result(*m).Text,
		}
		for j := range m.Innings {
			inn := &m.Innings[j]
			e.Innings = append(e.Innings, scoreSimple{
				Team:    m.BattingTeam(inn).Name,
				Runs:    inn.TotalRuns,
				Wickets: inn.Wickets,
				Overs:   inn.OversText(),
			})
			if n := len(inn.Deliveries); n > 0 && inn.Deliveries[n-1].Timestamp.After(e.CompletedAt) {
				e.CompletedAt = inn.Deliveries[n-1].Timestamp
			}
		}
		out = append(out, e)
	}
	return out
}

// decode reads a single JSON object into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", ErrBadRequest)
	}
	return nil
}
