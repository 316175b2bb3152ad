package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/metrics"
)

// Dispatcher serialises payloads into envelopes and pushes them.
type Dispatcher struct {
	driver   Driver
	failures FailureRecorder
	now      func() time.Time
}

// NewDispatcher returns a Dispatcher. failures may be nil.
func NewDispatcher(driver Driver, failures FailureRecorder) *Dispatcher {
	return &Dispatcher{driver: driver, failures: failures, now: time.Now}
}

// Envelope builds the envelope Enqueue would push for payload without
// pushing it.
func (d *Dispatcher) Envelope(queue, job string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("queue: marshal %s payload: %w", job, err)
	}

	id := uuid.NewString()
	if k, ok := payload.(Keyed); ok && k.JobKey() != "" {
		id = job + ":" + k.JobKey()
	}

	return Envelope{
		ID:         id,
		Queue:      queue,
		Job:        job,
		Payload:    raw,
		EnqueuedAt: d.now().UTC(),
	}, nil
}

// Enqueue wraps payload in an envelope and pushes it onto queue. A push
// failure is recorded as a failed job before the error is returned.
func (d *Dispatcher) Enqueue(ctx context.Context, queue, job string, payload any) (Envelope, error) {
	env, err := d.Envelope(queue, job, payload)
	if err != nil {
		return Envelope{}, err
	}

	if err := d.Push(ctx, env); err != nil {
		d.record(ctx, env, err)
		return env, err
	}
	return env, nil
}

// Defer records payload as a failed job without pushing it, for work that
// could not be dispatched at all. It is replayed by FailedJobStore.Retry.
func (d *Dispatcher) Defer(ctx context.Context, queue, job string, payload any, cause error) (Envelope, error) {
	env, err := d.Envelope(queue, job, payload)
	if err != nil {
		return Envelope{}, err
	}
	d.record(ctx, env, cause)
	return env, nil
}

func (d *Dispatcher) record(ctx context.Context, env Envelope, cause error) {
	if d.failures == nil {
		return
	}
	if err := d.failures.RecordFailure(context.WithoutCancel(ctx), env, cause); err != nil {
		logger.WithCtx(ctx).Error("queue: record failed job", "job", env.Job, "error", err)
	}
}

// Push sends a fully formed envelope. It is used directly when replaying
// failed jobs.
func (d *Dispatcher) Push(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	err = d.driver.Push(ctx, env.Queue, body)
	metrics.RecordEnqueue(env.Queue, env.Job, err)
	if err != nil {
		return fmt.Errorf("queue: push %s to %s: %w", env.Job, env.Queue, err)
	}
	return nil
}
