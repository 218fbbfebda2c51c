// Package worker archives completed matches from the queue into the history.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/cricscore/internal/adapters/mq/queue"
	"github.com/okian/cricscore/internal/adapters/repository"
	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/pkg/logger"
	"github.com/okian/cricscore/pkg/metrics"
)

const (
	defaultWorkerCount  = 2
	defaultSaveTimeout  = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Saver persists a completed match.
type Saver interface {
	Save(ctx context.Context, m model.Match) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// dequeueMarker is implemented by queues that track their depth.
type dequeueMarker interface {
	MarkDequeued()
}

// Worker archives jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue       Queue
	saver       Saver
	name        string
	saveTimeout time.Duration
	active      *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, saver Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		saver:       saver,
		name:        "archiver",
		saveTimeout: defaultSaveTimeout,
		active:      new(atomic.Int64),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if m, ok := w.queue.(dequeueMarker); ok {
				m.MarkDequeued()
			}
			if err := w.archive(ctx, job); err != nil {
				w.logger.Error(ctx, "archive failed", logger.String("match_id", job.Match.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) archive(ctx context.Context, job queue.Job) error { //nolint:gocritic // hugeParam: jobs arrive by value
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(time.Since(start))
	}()

	saveCtx, cancel := context.WithTimeout(ctx, w.saveTimeout)
	defer cancel()

	err := w.saver.Save(saveCtx, job.Match)
	switch {
	case err == nil:
		metrics.RecordMatchArchived()
		w.logger.Info(ctx, "match archived",
			logger.String("match_id", job.Match.ID),
			logger.Duration("queued_for", start.Sub(job.EnqueuedAt)),
		)
		return nil
	case errors.Is(err, repository.ErrAlreadyExists):
		w.logger.Debug(ctx, "match already archived", logger.String("match_id", job.Match.ID))
		return nil
	default:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "archive_error")
		return fmt.Errorf("archive match %s: %w", job.Match.ID, err)
	}
}

// Pool runs several archive workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount archivers.
func NewPool(workerCount int, q Queue, saver Saver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	active := new(atomic.Int64)
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("archive-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("archiver-" + strconv.Itoa(i))}, opts...)
		wopts = append(wopts, withActiveCounter(active))
		p.workers[i] = NewInMemoryWorker(q, saver, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to archive what is
// left on it. Workers still busy when ctx expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			_ = w.Shutdown(context.Background())
		}
	}
	if timedOut {
		return fmt.Errorf("archive pool shutdown: %w", drainCtx.Err())
	}
	return nil
}
