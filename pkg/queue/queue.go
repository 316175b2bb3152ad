// Package queue runs background jobs over a pluggable transport.
//
// Producers hand a payload to a Dispatcher:
//
//	d := queue.NewDispatcher(driver, failedJobs)
//	d.Enqueue(ctx, "emailQueue", "sendOrderEmail", payload)
//
// Workers register a handler per job name and drain one or more queues:
//
//	w := queue.NewWorker(driver, []string{"emailQueue"}, queue.WithMaxRetry(3))
//	w.Handle("sendOrderEmail", sendOrderEmail)
//	w.Run(ctx, 4)
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// PollTimeout bounds how long a single Pop waits before reporting ErrNoJob.
const PollTimeout = 5 * time.Second

var (
	// ErrNoJob is returned by Driver.Pop when nothing arrived within the
	// poll window.
	ErrNoJob = errors.New("queue: no job available")
	// ErrQueueFull is returned by bounded in-process drivers.
	ErrQueueFull = errors.New("queue: queue is full")
	// ErrClosed is returned by drivers after Close.
	ErrClosed = errors.New("queue: driver closed")
)

// Envelope is the wire format every driver carries.
type Envelope struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Job        string          `json:"job"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// Keyed payloads get a deterministic envelope id of the form "<job>:<key>",
// so replays of the same logical job share one completion marker.
type Keyed interface {
	JobKey() string
}

// Driver is the queue transport.
type Driver interface {
	Push(ctx context.Context, queue string, body []byte) error
	// Pop waits for the next message on any of queues and reports which
	// queue it came from.
	Pop(ctx context.Context, queues []string) (string, []byte, error)
	Close() error
}

// FailureRecorder persists jobs that could not be enqueued or exhausted
// their retries.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, env Envelope, cause error) error
}

// Marker tracks completed envelope ids so redelivered jobs are skipped.
type Marker interface {
	IsDone(ctx context.Context, id string) (bool, error)
	MarkDone(ctx context.Context, id string) error
}

func decodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, err
	}
	if env.Job == "" {
		return Envelope{}, errors.New("queue: envelope has no job name")
	}
	return env, nil
}
