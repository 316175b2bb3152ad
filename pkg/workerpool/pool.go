// Package workerpool provides a bounded goroutine pool with backpressure.
//
//	pool := workerpool.New(8, workerpool.WithPanicHandler(func(r any) { ... }))
//	defer pool.Shutdown()
//
//	if err := pool.SubmitWait(ctx, task); err != nil { ... }
package workerpool

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPoolFull is returned by Submit when the task buffer is at capacity.
	ErrPoolFull = errors.New("workerpool: pool is full")
	// ErrPoolClosed is returned after Shutdown has been called.
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

type Option func(*Pool)

// WithPanicHandler is called with the recovered value when a task panics.
func WithPanicHandler(fn func(recovered any)) Option {
	return func(p *Pool) { p.onPanic = fn }
}

// Pool runs tasks on a fixed number of goroutines. The task buffer holds
// twice the worker count.
type Pool struct {
	tasks   chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	onPanic func(any)
}

func New(size int, opts ...Option) *Pool {
	if size <= 0 {
		size = 1
	}

	p := &Pool{tasks: make(chan func(), size*2)}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is buffered, ctx is done, or the pool
// is closed.
func (p *Pool) SubmitWait(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks, runs everything already buffered and
// waits for the workers to exit. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			p.onPanic(r)
		}
	}()
	task()
}
