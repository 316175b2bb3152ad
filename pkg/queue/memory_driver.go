package queue

import (
	"context"
	"reflect"
	"sync"
	"time"
)

// DefaultMemoryCapacity is the per-queue buffer of MemoryDriver.
const DefaultMemoryCapacity = 1000

// MemoryDriver is an in-process, channel-backed driver. Messages are lost
// on restart.
type MemoryDriver struct {
	mu       sync.Mutex
	capacity int
	queues   map[string]chan []byte
	closed   chan struct{}
	once     sync.Once
	timeout  time.Duration
}

func NewMemoryDriver() *MemoryDriver {
	return NewMemoryDriverSize(DefaultMemoryCapacity)
}

func NewMemoryDriverSize(capacity int) *MemoryDriver {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryDriver{
		capacity: capacity,
		queues:   map[string]chan []byte{},
		closed:   make(chan struct{}),
		timeout:  PollTimeout,
	}
}

func (d *MemoryDriver) channel(name string) chan []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.queues[name]
	if !ok {
		ch = make(chan []byte, d.capacity)
		d.queues[name] = ch
	}
	return ch
}

func (d *MemoryDriver) Push(_ context.Context, queue string, body []byte) error {
	select {
	case <-d.closed:
		return ErrClosed
	default:
	}

	select {
	case d.channel(queue) <- body:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *MemoryDriver) Pop(ctx context.Context, queues []string) (string, []byte, error) {
	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	cases := []reflect.SelectCase{
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(d.closed)},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timer.C)},
	}
	for _, q := range queues {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(d.channel(q))})
	}

	chosen, v, _ := reflect.Select(cases)
	switch chosen {
	case 0:
		return "", nil, ctx.Err()
	case 1:
		return "", nil, ErrClosed
	case 2:
		return "", nil, ErrNoJob
	}
	return queues[chosen-3], v.Bytes(), nil
}

// Len reports how many messages are buffered on queue.
func (d *MemoryDriver) Len(queue string) int {
	return len(d.channel(queue))
}

func (d *MemoryDriver) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}
