package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/metrics"
	"github.com/shashiranjanraj/ordersvc/pkg/workerpool"
)

// HandlerFunc processes one job payload.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// ErrUnknownJob is recorded when no handler is registered for a job name.
var ErrUnknownJob = errors.New("queue: no handler registered")

type WorkerOption func(*Worker)

// WithMaxRetry sets the number of attempts per job. Values below 1 mean 1.
func WithMaxRetry(n int) WorkerOption {
	return func(w *Worker) {
		if n < 1 {
			n = 1
		}
		w.maxRetry = n
	}
}

// WithBackoff sets the delay base; attempt n waits n*base before retrying.
func WithBackoff(base time.Duration) WorkerOption {
	return func(w *Worker) { w.backoff = base }
}

func WithMarker(m Marker) WorkerOption {
	return func(w *Worker) { w.marker = m }
}

func WithFailureRecorder(f FailureRecorder) WorkerOption {
	return func(w *Worker) { w.failures = f }
}

func WithLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) { w.log = l }
}

// Worker pops envelopes from its queues and runs the matching handler on a
// bounded pool.
type Worker struct {
	driver   Driver
	queues   []string
	maxRetry int
	backoff  time.Duration
	marker   Marker
	failures FailureRecorder
	log      *slog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewWorker(driver Driver, queues []string, opts ...WorkerOption) *Worker {
	w := &Worker{
		driver:   driver,
		queues:   queues,
		maxRetry: 3,
		backoff:  time.Second,
		handlers: map[string]HandlerFunc{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.L
	}
	return w
}

// Handle registers fn for job. Registering twice replaces the handler.
func (w *Worker) Handle(job string, fn HandlerFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[job] = fn
}

func (w *Worker) handler(job string) (HandlerFunc, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fn, ok := w.handlers[job]
	return fn, ok
}

// Run blocks until ctx is cancelled. Jobs already handed to the pool are
// allowed to finish before Run returns.
func (w *Worker) Run(ctx context.Context, concurrency int) error {
	if len(w.queues) == 0 {
		return errors.New("queue: worker has no queues")
	}

	pool := workerpool.New(concurrency, workerpool.WithPanicHandler(func(r any) {
		w.log.Error("queue: worker panic", "panic", r)
	}))
	defer pool.Shutdown()

	w.log.Info("queue: worker started", "queues", w.queues, "concurrency", concurrency)

	for {
		if ctx.Err() != nil {
			w.log.Info("queue: worker stopping")
			return nil
		}

		queue, body, err := w.driver.Pop(ctx, w.queues)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoJob):
			continue
		case ctx.Err() != nil:
			continue
		case errors.Is(err, ErrClosed):
			return err
		default:
			w.log.Error("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}

		jobCtx := context.WithoutCancel(ctx)
		if err := pool.SubmitWait(ctx, func() { w.process(jobCtx, body) }); err != nil {
			// Shutting down with a popped message in hand: give it back.
			if perr := w.driver.Push(jobCtx, queue, body); perr != nil {
				w.log.Error("queue: requeue on shutdown failed", "queue", queue, "error", perr)
			}
		}
	}
}

// process runs a single raw envelope to completion, including retries.
func (w *Worker) process(ctx context.Context, body []byte) {
	env, err := decodeEnvelope(body)
	if err != nil {
		w.log.Error("queue: bad envelope", "error", err)
		return
	}

	log := w.log.With("job", env.Job, "job_id", env.ID, "queue", env.Queue)
	ctx = logger.InjectLogger(ctx, log)
	start := time.Now()

	fn, ok := w.handler(env.Job)
	if !ok {
		log.Error("queue: unknown job")
		w.fail(ctx, env, ErrUnknownJob)
		metrics.RecordQueueJob(env.Job, "failed", start)
		return
	}

	if w.marker != nil {
		done, err := w.marker.IsDone(ctx, env.ID)
		if err != nil {
			log.Warn("queue: completion marker lookup failed", "error", err)
		}
		if done {
			log.Info("queue: job already completed, skipping")
			metrics.RecordQueueJob(env.Job, "skipped", start)
			return
		}
	}

	var lastErr error
	for attempt := 1; attempt <= w.maxRetry; attempt++ {
		env.Attempts++
		lastErr = call(ctx, fn, env.Payload)
		if lastErr == nil {
			break
		}
		log.Warn("queue: job failed", "attempt", attempt, "error", lastErr)
		if attempt < w.maxRetry {
			sleep(ctx, time.Duration(attempt)*w.backoff)
		}
	}

	if lastErr != nil {
		log.Error("queue: job exhausted retries", "attempts", env.Attempts, "error", lastErr)
		w.fail(ctx, env, lastErr)
		metrics.RecordQueueJob(env.Job, "failed", start)
		return
	}

	if w.marker != nil {
		if err := w.marker.MarkDone(ctx, env.ID); err != nil {
			log.Warn("queue: completion marker write failed", "error", err)
		}
	}
	log.Info("queue: job processed", "attempts", env.Attempts)
	metrics.RecordQueueJob(env.Job, "success", start)
}

func (w *Worker) fail(ctx context.Context, env Envelope, cause error) {
	if w.failures == nil {
		return
	}
	if err := w.failures.RecordFailure(ctx, env, cause); err != nil {
		logger.WithCtx(ctx).Error("queue: record failed job", "error", err)
	}
}

// call converts a handler panic into an error so it is retried like any
// other failure.
func call(ctx context.Context, fn HandlerFunc, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: handler panic: %v", r)
		}
	}()
	return fn(ctx, payload)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
