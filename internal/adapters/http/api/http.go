// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/cricscore/internal/domain/engine"
	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/scorecard"
)

const requestTimeout = 30 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateMatch(ctx context.Context, setup engine.Setup) (model.Match, error)
	Match(ctx context.Context, id string) (model.Match, error)
	Live(ctx context.Context, id string) (scorecard.Live, error)
	AddBall(ctx context.Context, id, key string, in model.DeliveryInput) (model.Match, error)
	Undo(ctx context.Context, id string) (model.Match, error)
	RegisterBatsman(ctx context.Context, id, playerID string) (model.Match, error)
	RegisterBowler(ctx context.Context, id, playerID string) (model.Match, error)
	History(ctx context.Context) ([]model.Match, error)
	Scorecard(ctx context.Context, id string) (scorecard.Card, error)
}

// LiveServer subscribes an upgraded connection to a match feed. snapshot is
// called once the connection is subscribed.
type LiveServer interface {
	Serve(w http.ResponseWriter, r *http.Request, matchID string, snapshot func() (any, error))
}

// Server wires HTTP routes for the scorebook API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	matches       *MatchesHandler
}

// NewServer creates a new API server with all handlers. live may be nil,
// in which case the live feed route answers 404.
func NewServer(deps Dependencies, statsProvider StatsProvider, live LiveServer) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		matches:       NewMatchesHandler(deps, live),
	}
}

// Register attaches all HTTP routes to r. Origins lists the CORS origins
// allowed to call the API; empty allows all.
func (s *Server) Register(_ context.Context, r chi.Router, origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", idempotencyHeader},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)

	timeout := chimiddleware.Timeout(requestTimeout)
	r.With(timeout).Get("/history", s.matches.HandleHistory)
	r.Route("/matches", func(r chi.Router) {
		r.With(timeout).Post("/", s.matches.HandleCreate)
		r.Route("/{id}", func(r chi.Router) {
			// Live subscriptions are long-lived and skip the request timeout.
			r.Get("/live", s.matches.HandleLive)

			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Get("/", s.matches.HandleGet)
				r.Post("/balls", s.matches.HandleAddBall)
				r.Post("/undo", s.matches.HandleUndo)
				r.Post("/batsmen", s.matches.HandleRegisterBatsman)
				r.Post("/bowlers", s.matches.HandleRegisterBowler)
				r.Get("/scorecard", s.matches.HandleScorecard)
			})
		})
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes the matching error response.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}
