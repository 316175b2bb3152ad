// Package mail sends transactional email.
//
//	m, _ := mail.New("smtp", mail.SMTP{Host: "smtp.example.com", Port: "587", ...})
//	m.Send(ctx, mail.Message{To: []string{"a@b.co"}, Subject: "Order received", HTML: body})
//
// The "log" driver writes each message to the structured logger instead of
// sending it, which is the default outside production.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// Message is one outgoing email. HTML wins over Text when both are set.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return errors.New("mail: message has no recipients")
	}
	for _, addr := range m.To {
		if strings.ContainsAny(addr, "\r\n") {
			return fmt.Errorf("mail: invalid recipient %q", addr)
		}
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return errors.New("mail: subject contains a line break")
	}
	return nil
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the mailer for driver ("log" or "smtp").
func New(driver string, cfg SMTP) (Mailer, error) {
	switch driver {
	case "", "log":
		return NewLogMailer(nil), nil
	case "smtp":
		if cfg.Host == "" {
			return nil, errors.New("mail: MAIL_HOST is not configured")
		}
		return NewSMTPMailer(cfg), nil
	default:
		return nil, fmt.Errorf("mail: unsupported driver %q (supported: log, smtp)", driver)
	}
}

// Render executes an html/template into a string body.
func Render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("mail: render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
