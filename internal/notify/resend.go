package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendTransport sends mail through the Resend API.
type ResendTransport struct {
	client *resend.Client
	from   string
}

// NewResendTransport builds a transport for apiKey. An empty baseURL keeps
// the SDK default.
func NewResendTransport(apiKey, baseURL, from string) (*ResendTransport, error) {
	client := resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, apiKey)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse resend base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendTransport{client: client, from: from}, nil
}

func (t *ResendTransport) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	_, err := t.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    t.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return fmt.Errorf("resend send to %s: %w", msg.To, err)
	}
	return nil
}
