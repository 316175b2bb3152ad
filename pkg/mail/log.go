package mail

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shashiranjanraj/ordersvc/pkg/logger"
)

// LogMailer records messages instead of sending them.
type LogMailer struct {
	log *slog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogMailer logs through l, or the request logger in ctx when l is nil.
func NewLogMailer(l *slog.Logger) *LogMailer {
	return &LogMailer{log: l}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	log := m.log
	if log == nil {
		log = logger.WithCtx(ctx)
	}
	log.Info("mail: message captured", "to", msg.To, "subject", msg.Subject, "bytes", len(msg.HTML)+len(msg.Text))

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of every message captured so far.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}
