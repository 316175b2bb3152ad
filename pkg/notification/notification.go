// Package notification fans a single event out to one or more channels.
//
//	type OrderPlaced struct{ ... }
//	func (n OrderPlaced) Via() []string { return []string{notification.Mail, notification.Webhook} }
//	func (n OrderPlaced) ToMail(to string) mail.Message { ... }
//	func (n OrderPlaced) ToWebhook() any { ... }
//
//	notifier.Send(ctx, "user@example.com", OrderPlaced{...})
//
// The webhook channel is skipped silently when no URL is configured.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	outbound "github.com/shashiranjanraj/ordersvc/pkg/http"
	"github.com/shashiranjanraj/ordersvc/pkg/mail"
)

const (
	Mail    = "mail"
	Webhook = "webhook"
)

type Notification interface {
	Via() []string
}

type Mailable interface {
	ToMail(to string) mail.Message
}

// Webhookable returns the JSON body to POST.
type Webhookable interface {
	ToWebhook() any
}

const (
	webhookAttempts = 3
	webhookBackoff  = 200 * time.Millisecond
)

type Notifier struct {
	mailer     mail.Mailer
	webhookURL string
}

func New(mailer mail.Mailer, webhookURL string) *Notifier {
	return &Notifier{mailer: mailer, webhookURL: webhookURL}
}

// Send delivers n on every channel it asks for and joins the failures.
func (s *Notifier) Send(ctx context.Context, address string, n Notification) error {
	var errs []error
	for _, channel := range n.Via() {
		if err := s.dispatch(ctx, address, channel, n); err != nil {
			errs = append(errs, fmt.Errorf("notification: %s: %w", channel, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Notifier) dispatch(ctx context.Context, address, channel string, n Notification) error {
	switch channel {
	case Mail:
		m, ok := n.(Mailable)
		if !ok {
			return fmt.Errorf("%T does not implement Mailable", n)
		}
		if s.mailer == nil {
			return errors.New("no mailer configured")
		}
		return s.mailer.Send(ctx, m.ToMail(address))

	case Webhook:
		wh, ok := n.(Webhookable)
		if !ok {
			return fmt.Errorf("%T does not implement Webhookable", n)
		}
		if s.webhookURL == "" {
			return nil
		}
		return s.post(ctx, wh.ToWebhook())

	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}

func (s *Notifier) post(ctx context.Context, payload any) error {
	resp, err := outbound.Post(s.webhookURL).
		Body(payload).
		WithContext(ctx).
		Retry(webhookAttempts, webhookBackoff).
		Send()
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
