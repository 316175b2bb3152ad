package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shashiranjanraj/ordersvc/pkg/logger"
)

// KafkaGroupID is the consumer group every worker process joins.
const KafkaGroupID = "ordersvc-workers"

type kafkaDelivery struct {
	queue  string
	reader *kafka.Reader
	msg    kafka.Message
}

// KafkaDriver maps each queue to a topic of the same name. Offsets are
// committed when a message is popped.
type KafkaDriver struct {
	brokers []string
	writer  *kafka.Writer

	mu      sync.Mutex
	readers map[string]*kafka.Reader

	deliveries chan kafkaDelivery
	ctx        context.Context
	cancel     context.CancelFunc
	once       sync.Once
}

func NewKafkaDriver(brokers []string) (*KafkaDriver, error) {
	if len(brokers) == 0 {
		return nil, errors.New("queue/kafka: no brokers configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaDriver{
		brokers: brokers,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireAll,
		},
		readers:    map[string]*kafka.Reader{},
		deliveries: make(chan kafkaDelivery),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func (d *KafkaDriver) Push(ctx context.Context, queue string, body []byte) error {
	if err := d.writer.WriteMessages(ctx, kafka.Message{Topic: queue, Value: body}); err != nil {
		return fmt.Errorf("queue/kafka: write: %w", err)
	}
	return nil
}

func (d *KafkaDriver) subscribe(queue string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.readers[queue]; ok {
		return
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  d.brokers,
		Topic:    queue,
		GroupID:  KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	d.readers[queue] = r

	go func() {
		for {
			msg, err := r.FetchMessage(d.ctx)
			if err != nil {
				if d.ctx.Err() != nil {
					return
				}
				logger.Error("queue/kafka: fetch failed", "topic", queue, "error", err)
				sleep(d.ctx, time.Second)
				continue
			}
			select {
			case d.deliveries <- kafkaDelivery{queue: queue, reader: r, msg: msg}:
			case <-d.ctx.Done():
				return
			}
		}
	}()
}

func (d *KafkaDriver) Pop(ctx context.Context, queues []string) (string, []byte, error) {
	for _, q := range queues {
		d.subscribe(q)
	}

	timer := time.NewTimer(PollTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case <-d.ctx.Done():
		return "", nil, ErrClosed
	case <-timer.C:
		return "", nil, ErrNoJob
	case del := <-d.deliveries:
		if err := del.reader.CommitMessages(ctx, del.msg); err != nil {
			return "", nil, fmt.Errorf("queue/kafka: commit: %w", err)
		}
		return del.queue, del.msg.Value, nil
	}
}

func (d *KafkaDriver) Close() error {
	var errs []error
	d.once.Do(func() {
		d.cancel()
		d.mu.Lock()
		for _, r := range d.readers {
			errs = append(errs, r.Close())
		}
		d.mu.Unlock()
		errs = append(errs, d.writer.Close())
	})
	return errors.Join(errs...)
}
