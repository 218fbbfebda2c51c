// Package service owns the live matches and exposes the scoring operations
// used by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cricscore/internal/adapters/mq/queue"
	"github.com/okian/cricscore/internal/adapters/mq/worker"
	"github.com/okian/cricscore/internal/adapters/repository"
	"github.com/okian/cricscore/internal/adapters/ws"
	"github.com/okian/cricscore/internal/domain/dedupe"
	"github.com/okian/cricscore/internal/domain/engine"
	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/scorecard"
	"github.com/okian/cricscore/pkg/logger"
	"github.com/okian/cricscore/pkg/metrics"
)

const (
	defaultArchiveWorkers   = 2
	defaultArchiveQueueSize = 64
	defaultDedupeSize       = 10000
	defaultMaxUndo          = 120
	stopTimeout             = 30 * time.Second
)

// Publisher receives live updates for subscribers of a match.
type Publisher interface {
	Broadcast(msg ws.Message)
}

type nopPublisher struct{}

func (nopPublisher) Broadcast(ws.Message) {}

// session is one live match. mu serialises every change to it; done mirrors
// the completed status so it can be read without taking mu.
type session struct {
	mu    sync.Mutex
	match model.Match
	undo  []undoEntry
	done  atomic.Bool
}

// undoEntry is the state before one change. key is the dedupe key of the
// ball that made the change, empty for lineup changes and unkeyed balls.
type undoEntry struct {
	match model.Match
	key   string
}

// Service implements the API dependencies for the scorebook.
type Service struct {
	mu sync.RWMutex

	// Core components
	sessions  map[string]*session
	engine    *engine.Engine
	history   repository.Store
	deduper   dedupe.Deduper
	archive   *queue.InMemoryQueue
	archivers *worker.Pool
	publisher Publisher

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	maxUndo     int
	newID       func() string
	now         func() time.Time

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithArchiveWorkers sets the number of goroutines archiving completed matches.
func WithArchiveWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithArchiveQueueSize sets the capacity of the archive queue.
func WithArchiveQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many delivery keys are remembered for retries.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxUndo bounds the undo stack of each match.
func WithMaxUndo(depth int) Option {
	return func(s *Service) {
		if depth > 0 {
			s.maxUndo = depth
		}
	}
}

// WithHistory sets the store completed matches are archived into. The
// service closes it on Stop.
func WithHistory(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.history = store
		}
	}
}

// WithPublisher sets where live updates are sent.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithEngine sets the scoring engine.
func WithEngine(e *engine.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithIDGenerator sets how ids are minted for matches created without one.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock sets the time source for live message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:    make(map[string]*session),
		engine:      engine.New(),
		publisher:   nopPublisher{},
		workerCount: defaultArchiveWorkers,
		queueSize:   defaultArchiveQueueSize,
		dedupeSize:  defaultDedupeSize,
		maxUndo:     defaultMaxUndo,
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.history == nil {
		s.history = repository.NewMemoryStore()
	}

	s.logger.Info(ctx, "starting scorebook service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.archive = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.archivers = worker.NewPool(s.workerCount, s.archive, s.history,
		worker.WithLogger(s.logger.Named("archiver")),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.archivers.Start(runCtx)

	s.started = true
	metrics.UpdateHistorySize(s.history.Count(ctx))
	s.logger.Info(ctx, "scorebook service started",
		logger.Int("archiveWorkers", s.workerCount),
		logger.Int("archiveQueueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("maxUndo", s.maxUndo),
	)
	return nil
}

// Stop archives whatever is still queued and closes the history.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping scorebook service...")

	if err := s.archivers.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "archive drain incomplete", logger.Error(err))
	}
	s.cancel()
	if err := s.history.Close(); err != nil {
		s.logger.Error(ctx, "error closing history", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "scorebook service stopped")
}

// CreateMatch starts a new live match. A setup without an id gets one.
func (s *Service) CreateMatch(ctx context.Context, setup engine.Setup) (model.Match, error) {
	const op = "service.create_match"
	if setup.ID == "" {
		setup.ID = s.newID()
	}
	m, err := s.engine.NewMatch(setup)
	if err != nil {
		return model.Match{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return model.Match{}, fmt.Errorf("%s: %w", op, ErrNotStarted)
	}
	if _, dup := s.sessions[m.ID]; dup {
		s.mu.Unlock()
		return model.Match{}, fmt.Errorf("%s: %s: %w", op, m.ID, ErrMatchExists)
	}
	s.sessions[m.ID] = &session{match: m}
	live := s.liveCountLocked()
	s.mu.Unlock()

	metrics.RecordMatchCreated()
	metrics.UpdateLiveMatches(live)
	s.logger.Info(ctx, "match created",
		logger.String("matchID", m.ID),
		logger.Int("overs", m.OversLimit),
	)
	return m.Clone(), nil
}

// Match returns the current state of a live match.
func (s *Service) Match(_ context.Context, id string) (model.Match, error) {
	sess, err := s.session("service.match", id)
	if err != nil {
		return model.Match{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.match.Clone(), nil
}

// Live returns the scoreboard summary of a live match.
func (s *Service) Live(ctx context.Context, id string) (scorecard.Live, error) {
	m, err := s.Match(ctx, id)
	if err != nil {
		return scorecard.Live{}, err
	}
	return scorecard.Summary(m), nil
}

// AddBall applies one delivery. A non-empty key makes the call idempotent:
// repeating a key already applied to this match returns the current state
// without scoring the ball again.
func (s *Service) AddBall(ctx context.Context, id, key string, in model.DeliveryInput) (model.Match, error) {
	const op = "service.add_ball"
	sess, err := s.session(op, id)
	if err != nil {
		return model.Match{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	dedupeKey := ""
	if key != "" {
		dedupeKey = id + "/" + key
		if s.deduper.SeenAndRecord(ctx, dedupeKey) {
			metrics.RecordDeliveryDuplicate()
			s.logger.Debug(ctx, "duplicate delivery, skipping",
				logger.String("matchID", id),
				logger.String("key", key),
			)
			return sess.match.Clone(), nil
		}
	}

	start := time.Now()
	next, err := s.engine.AddBall(sess.match, in)
	metrics.RecordEngineLatency(time.Since(start))
	if err != nil {
		if dedupeKey != "" {
			s.deduper.Unrecord(ctx, dedupeKey)
		}
		metrics.RecordDeliveryRejected(engine.Reason(err))
		return model.Match{}, fmt.Errorf("%s: %w", op, err)
	}

	s.commit(sess, next, dedupeKey)
	metrics.RecordDeliveryApplied()
	if in.Dismissal != nil {
		metrics.RecordWicket(string(in.Dismissal.Type))
	}
	s.publish(ws.MessageTypeBall, next)

	if next.Completed() {
		s.complete(ctx, next)
	}
	return next.Clone(), nil
}

// Undo restores the match to the state before its last change.
func (s *Service) Undo(ctx context.Context, id string) (model.Match, error) {
	const op = "service.undo"
	sess, err := s.session(op, id)
	if err != nil {
		return model.Match{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.match.Completed() {
		return model.Match{}, fmt.Errorf("%s: %w", op, engine.ErrMatchCompleted)
	}
	n := len(sess.undo)
	if n == 0 {
		return model.Match{}, fmt.Errorf("%s: %w", op, ErrNothingToUndo)
	}
	last := sess.undo[n-1]
	sess.match = last.match
	sess.undo[n-1] = undoEntry{}
	sess.undo = sess.undo[:n-1]
	if last.key != "" {
		s.deduper.Unrecord(ctx, last.key)
	}

	metrics.RecordUndo()
	s.publish(ws.MessageTypeUndo, sess.match)
	s.logger.Info(ctx, "change undone",
		logger.String("matchID", id),
		logger.Int("remaining", len(sess.undo)),
	)
	return sess.match.Clone(), nil
}

// RegisterBatsman sends the next batsman in after a dismissal.
func (s *Service) RegisterBatsman(_ context.Context, id, playerID string) (model.Match, error) {
	return s.lineup("service.register_batsman", id, func(m model.Match) (model.Match, error) {
		return s.engine.RegisterBatsman(m, playerID)
	})
}

// RegisterBowler brings a bowler into the attack.
func (s *Service) RegisterBowler(_ context.Context, id, playerID string) (model.Match, error) {
	return s.lineup("service.register_bowler", id, func(m model.Match) (model.Match, error) {
		return s.engine.RegisterBowler(m, playerID)
	})
}

func (s *Service) lineup(op, id string, apply func(model.Match) (model.Match, error)) (model.Match, error) {
	sess, err := s.session(op, id)
	if err != nil {
		return model.Match{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	next, err := apply(sess.match)
	if err != nil {
		return model.Match{}, fmt.Errorf("%s: %w", op, err)
	}
	s.commit(sess, next, "")
	s.publish(ws.MessageTypeLineup, next)
	return next.Clone(), nil
}

// History returns archived matches, newest first.
func (s *Service) History(ctx context.Context) ([]model.Match, error) {
	const op = "service.history"
	store, err := s.store(op)
	if err != nil {
		return nil, err
	}
	matches, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return matches, nil
}

// Scorecard builds the scorecard of a live match, or of an archived one
// when it is no longer live.
func (s *Service) Scorecard(ctx context.Context, id string) (scorecard.Card, error) {
	const op = "service.scorecard"
	m, err := s.Match(ctx, id)
	if err == nil {
		return scorecard.Build(m), nil
	}
	if !errors.Is(err, ErrMatchNotFound) {
		return scorecard.Card{}, err
	}

	archived, err := s.History(ctx)
	if err != nil {
		return scorecard.Card{}, fmt.Errorf("%s: %w", op, err)
	}
	for i := range archived {
		if archived[i].ID == id {
			return scorecard.Build(archived[i]), nil
		}
	}
	return scorecard.Card{}, fmt.Errorf("%s: %s: %w", op, id, ErrMatchNotFound)
}

// MatchIDs lists the ids of all matches held in memory, sorted.
func (s *Service) MatchIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":          s.started,
		"archiveWorkers":   s.workerCount,
		"archiveQueueSize": s.queueSize,
		"dedupeSize":       s.dedupeSize,
		"maxUndo":          s.maxUndo,
		"matches":          len(s.sessions),
	}

	if s.started {
		live := s.liveCountLocked()
		archived := s.history.Count(ctx)
		queueLen := s.archive.Len(ctx)

		stats["liveMatches"] = live
		stats["archivedMatches"] = archived
		stats["archiveQueueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateLiveMatches(live)
		metrics.UpdateHistorySize(archived)
		metrics.UpdateQueueSize(queueLen)
	}
	if counter, ok := s.publisher.(interface{ ClientCount(string) int }); ok {
		stats["liveClients"] = counter.ClientCount("")
	}
	return stats
}

func (s *Service) session(op, id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, fmt.Errorf("%s: %w", op, ErrNotStarted)
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", op, id, ErrMatchNotFound)
	}
	return sess, nil
}

func (s *Service) store(op string) (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, fmt.Errorf("%s: %w", op, ErrNotStarted)
	}
	return s.history, nil
}

// commit pushes the current state on the undo stack and replaces it with
// next. key is released again if the change is undone. The caller holds
// sess.mu.
func (s *Service) commit(sess *session, next model.Match, key string) { //nolint:gocritic // hugeParam: matches move by value
	if len(sess.undo) == s.maxUndo {
		copy(sess.undo, sess.undo[1:])
		sess.undo = sess.undo[:len(sess.undo)-1]
	}
	sess.undo = append(sess.undo, undoEntry{match: sess.match, key: key})
	sess.match = next
	sess.done.Store(next.Completed())
}

// complete hands a finished match to the archive. When the queue is full the
// match is saved inline so no result is lost.
func (s *Service) complete(ctx context.Context, m model.Match) { //nolint:gocritic // hugeParam: matches move by value
	metrics.RecordMatchCompleted()
	s.mu.RLock()
	metrics.UpdateLiveMatches(s.liveCountLocked())
	s.mu.RUnlock()

	s.logger.Info(ctx, "match completed",
		logger.String("matchID", m.ID),
		logger.String("result", scorecard.Result(m).Text),
	)
	s.publish(ws.MessageTypeCompleted, m)

	if s.archive.Enqueue(ctx, m) {
		return
	}
	s.logger.Warn(ctx, "archive queue full, saving inline", logger.String("matchID", m.ID))
	if err := s.history.Save(ctx, m); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		s.logger.Error(ctx, "failed to archive match",
			logger.String("matchID", m.ID),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("service", "archive_error")
	}
}

func (s *Service) publish(kind string, m model.Match) { //nolint:gocritic // hugeParam: matches move by value
	s.publisher.Broadcast(ws.Message{
		Type:      kind,
		MatchID:   m.ID,
		Payload:   scorecard.Summary(m),
		Timestamp: s.now(),
	})
}

// liveCountLocked counts matches not yet completed. The caller holds s.mu.
func (s *Service) liveCountLocked() int {
	n := 0
	for _, sess := range s.sessions {
		if !sess.done.Load() {
			n++
		}
	}
	return n
}
