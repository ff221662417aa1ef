// Package notify sends transactional email and rate limits the contact form.
package notify

import (
	"context"
	"fmt"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
	// Kind labels the message for logs and metrics, e.g. "welcome".
	Kind string
}

func (m Message) validate() error {
	if m.To == "" {
		return fmt.Errorf("notify: %s message has no recipient", m.Kind)
	}
	if m.Subject == "" {
		return fmt.Errorf("notify: %s message has no subject", m.Kind)
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("notify: %s message has no body", m.Kind)
	}
	return nil
}

// Transport delivers a message through a mail provider.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}
