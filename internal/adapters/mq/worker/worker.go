// Package worker runs placement saves taken off the save queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/formation/internal/adapters/mq/queue"
	"github.com/okian/formation/internal/domain/lineup"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/pkg/logger"
	"github.com/okian/formation/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 4
	defaultSaveTimeout  = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Writer persists one placement. A non-empty status is used as-is; an error
// with an empty status is reported as model.SaveFailed.
type Writer interface {
	SavePlacement(ctx context.Context, req model.SaveRequest) (model.SaveStatus, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Enqueuer is the producing side of the queue used by Pool.Save.
type Enqueuer interface {
	Queue
	Enqueue(ctx context.Context, j queue.Job) error
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	writer  Writer
	name    string
	timeout time.Duration

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  atomic.Bool

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, writer Writer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		writer:   writer,
		name:     "worker",
		timeout:  defaultSaveTimeout,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	w.started.Store(true)
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown gracefully stops the worker. It may be called more than once
// and returns at once for a worker that never ran.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	if !w.started.Load() {
		return nil
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process performs one remote write and hands the result to the job's
// continuation.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) {
	start := time.Now()
	saveCtx, cancel := context.WithTimeout(ctx, w.timeout)
	status, err := w.writer.SavePlacement(saveCtx, j.Request)
	cancel()

	if status == "" {
		status = model.SaveOK
		if err != nil {
			status = model.SaveFailed
		}
	}
	res := model.SaveResult{Request: j.Request, Status: status, Latency: time.Since(start)}
	if err != nil {
		res.Err = lineup.SaveError(j.Request, err)
	}

	switch status {
	case model.SaveOK:
	case model.SaveStale:
		metrics.RecordErrorByComponent("worker", "stale_version")
		w.logger.Info(ctx, "save rejected as stale",
			logger.String("player_id", j.Request.PlayerID),
			logger.Uint64("version", j.Request.Version),
		)
	default:
		metrics.RecordErrorByComponent("worker", "save_failed")
		w.logger.Error(ctx, "save failed",
			logger.String("request_id", j.Request.RequestID),
			logger.String("player_id", j.Request.PlayerID),
			logger.Error(err),
		)
	}

	if j.Done != nil {
		j.Done(res)
	}
}

// Pool manages multiple workers and is the store's Saver.
type Pool struct {
	workers []*InMemoryWorker
	queue   Enqueuer
	logger  logger.Logger
}

// NewPool creates workerCount workers reading from q and writing through
// writer. opts are applied to every worker.
func NewPool(workerCount int, q Enqueuer, writer Writer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, writer, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		w.started.Store(true)
		go w.Run(ctx)
	}
}

// Save implements lineup.Saver. It never blocks: when the job cannot be
// queued, done receives a failed result before Save returns.
func (p *Pool) Save(ctx context.Context, req model.SaveRequest, done func(model.SaveResult)) {
	err := p.queue.Enqueue(ctx, queue.Job{Request: req, Done: done})
	if err == nil {
		return
	}
	if !errors.Is(err, queue.ErrFull) && !errors.Is(err, queue.ErrClosed) {
		err = fmt.Errorf("enqueue save: %w", err)
	}
	p.logger.Warn(ctx, "save not queued",
		logger.String("player_id", req.PlayerID),
		logger.Error(err),
	)
	if done != nil {
		done(model.SaveResult{Request: req, Status: model.SaveFailed, Err: lineup.SaveError(req, err)})
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if !w.started.Load() {
			continue
		}
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
