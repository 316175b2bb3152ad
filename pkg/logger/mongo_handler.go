package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoQueueSize = 4096
	mongoBatchSize = 50
	mongoDrainTick = 2 * time.Second
)

// promoted lists attribute keys lifted to top-level document fields so the
// order trail can be queried by index ({order_id: ...}).
var promoted = map[string]struct{}{
	"request_id": {},
	"order_id":   {},
	"user_id":    {},
	"job":        {},
}

// LogDocument is the shape written to MongoDB.
type LogDocument struct {
	Time      time.Time `bson:"time"`
	Level     string    `bson:"level"`
	Msg       string    `bson:"msg"`
	RequestID string    `bson:"request_id,omitempty"`
	OrderID   string    `bson:"order_id,omitempty"`
	UserID    string    `bson:"user_id,omitempty"`
	Job       string    `bson:"job,omitempty"`
	Attrs     bson.M    `bson:"attrs,omitempty"`
}

func (d *LogDocument) set(key string, v slog.Value) {
	switch key {
	case "request_id":
		d.RequestID = v.String()
	case "order_id":
		d.OrderID = v.String()
	case "user_id":
		d.UserID = v.String()
	case "job":
		d.Job = v.String()
	default:
		d.Attrs[key] = v.Resolve().Any()
	}
}

// MongoSink is a slog.Handler that batches records into a MongoDB
// collection from a background goroutine. Handle never blocks: when the
// buffer is full the record is dropped.
type MongoSink struct {
	col    *mongo.Collection
	client *mongo.Client
	level  slog.Level
	queue  chan LogDocument
	done   chan struct{}
	closed chan struct{}
	attrs  []slog.Attr
	prefix string
}

// NewMongoSink connects to uri and writes into db.collection. Records below
// level are ignored. The caller must Close it.
func NewMongoSink(ctx context.Context, uri, db, collection string, level slog.Level) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second).
		SetMaxPoolSize(10))
	if err != nil {
		return nil, fmt.Errorf("logger/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("logger/mongo: ping: %w", err)
	}

	col := client.Database(db).Collection(collection)
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "time", Value: -1}}},
		{Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "time", Value: -1}}},
	})

	s := &MongoSink{
		col:    col,
		client: client,
		level:  level,
		queue:  make(chan LogDocument, mongoQueueSize),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go s.drainLoop()
	return s, nil
}

func (s *MongoSink) Enabled(_ context.Context, l slog.Level) bool { return l >= s.level }

func (s *MongoSink) Handle(_ context.Context, r slog.Record) error {
	doc := LogDocument{
		Time:  r.Time.UTC(),
		Level: r.Level.String(),
		Msg:   r.Message,
		Attrs: bson.M{},
	}
	for _, a := range s.attrs {
		doc.set(s.key(a.Key), a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		doc.set(s.key(a.Key), a.Value)
		return true
	})

	select {
	case s.queue <- doc:
	default:
	}
	return nil
}

func (s *MongoSink) key(k string) string {
	if _, ok := promoted[k]; ok || s.prefix == "" {
		return k
	}
	return s.prefix + k
}

func (s *MongoSink) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *s
	c.attrs = append(append([]slog.Attr{}, s.attrs...), attrs...)
	return &c
}

func (s *MongoSink) WithGroup(name string) slog.Handler {
	c := *s
	c.prefix = s.prefix + name + "."
	return &c
}

func (s *MongoSink) drainLoop() {
	defer close(s.closed)

	ticker := time.NewTicker(mongoDrainTick)
	defer ticker.Stop()

	batch := make([]interface{}, 0, mongoBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = s.col.InsertMany(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case doc := <-s.queue:
			batch = append(batch, doc)
			if len(batch) >= mongoBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for len(s.queue) > 0 {
				batch = append(batch, <-s.queue)
			}
			flush()
			return
		}
	}
}

// Close flushes pending records and disconnects. Safe to call twice.
func (s *MongoSink) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.closed

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

// MultiHandler fans out to multiple slog.Handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(hs ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: hs}
}
