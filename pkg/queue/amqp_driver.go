package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

type amqpDelivery struct {
	queue string
	msg   amqp.Delivery
}

// AMQPDriver publishes each queue as a durable RabbitMQ queue on the
// default exchange. Messages are acknowledged when popped; a job that then
// fails ends up in failed_jobs rather than being redelivered.
type AMQPDriver struct {
	conn *amqp.Connection

	pubMu sync.Mutex
	pub   *amqp.Channel

	mu       sync.Mutex
	sub      *amqp.Channel
	declared map[string]bool
	consumed map[string]bool

	deliveries chan amqpDelivery
	closed     chan struct{}
	once       sync.Once
}

// DialAMQP connects to url and opens the publishing and consuming channels.
func DialAMQP(url string, prefetch int) (*AMQPDriver, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("queue/amqp: dial: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue/amqp: open channel: %w", err)
	}
	sub, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue/amqp: open channel: %w", err)
	}
	if prefetch > 0 {
		if err := sub.Qos(prefetch, 0, false); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("queue/amqp: qos: %w", err)
		}
	}

	return &AMQPDriver{
		conn:       conn,
		pub:        pub,
		sub:        sub,
		declared:   map[string]bool{},
		consumed:   map[string]bool{},
		deliveries: make(chan amqpDelivery),
		closed:     make(chan struct{}),
	}, nil
}

func (d *AMQPDriver) declare(ch *amqp.Channel, queue string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.declared[queue] {
		return nil
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue/amqp: declare %s: %w", queue, err)
	}
	d.declared[queue] = true
	return nil
}

func (d *AMQPDriver) Push(_ context.Context, queue string, body []byte) error {
	d.pubMu.Lock()
	defer d.pubMu.Unlock()

	if err := d.declare(d.pub, queue); err != nil {
		return err
	}
	err := d.pub.Publish("", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("queue/amqp: publish: %w", err)
	}
	return nil
}

// consume starts a forwarding goroutine for queue the first time it is
// asked for.
func (d *AMQPDriver) consume(queue string) error {
	if err := d.declare(d.sub, queue); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.consumed[queue] {
		return nil
	}

	msgs, err := d.sub.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue/amqp: consume %s: %w", queue, err)
	}
	d.consumed[queue] = true

	go func() {
		for msg := range msgs {
			select {
			case d.deliveries <- amqpDelivery{queue: queue, msg: msg}:
			case <-d.closed:
				return
			}
		}
	}()
	return nil
}

func (d *AMQPDriver) Pop(ctx context.Context, queues []string) (string, []byte, error) {
	for _, q := range queues {
		if err := d.consume(q); err != nil {
			return "", nil, err
		}
	}

	timer := time.NewTimer(PollTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case <-d.closed:
		return "", nil, ErrClosed
	case <-timer.C:
		return "", nil, ErrNoJob
	case del := <-d.deliveries:
		if err := del.msg.Ack(false); err != nil {
			return "", nil, fmt.Errorf("queue/amqp: ack: %w", err)
		}
		return del.queue, del.msg.Body, nil
	}
}

func (d *AMQPDriver) Close() error {
	var err error
	d.once.Do(func() {
		close(d.closed)
		err = d.conn.Close()
	})
	return err
}
