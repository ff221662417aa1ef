package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
)

// SMTPTransport sends mail through an SMTP relay with PLAIN auth,
// upgrading to STARTTLS when the server offers it. The whole exchange is
// bounded by the context passed to Send.
type SMTPTransport struct {
	host     string
	port     int
	username string
	password string
	from     string
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTPTransport(host string, port int, username, password, from string) *SMTPTransport {
	d := &net.Dialer{Timeout: 15 * time.Second}
	return &SMTPTransport{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		dial:     d.DialContext,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	raw, err := buildMIME(t.from, msg, time.Now())
	if err != nil {
		return err
	}
	if err := t.deliver(ctx, msg.To, raw); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (t *SMTPTransport) deliver(ctx context.Context, to string, raw []byte) error {
	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	conn, err := t.dial(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}
	// Cancellation without a deadline still has to unblock the exchange.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return withContext(ctx, err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: t.host}); err != nil {
			return withContext(ctx, err)
		}
	}
	if t.username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", t.username, t.password, t.host)); err != nil {
				return withContext(ctx, err)
			}
		}
	}
	if err := c.Mail(t.from); err != nil {
		return withContext(ctx, err)
	}
	if err := c.Rcpt(to); err != nil {
		return withContext(ctx, err)
	}
	w, err := c.Data()
	if err != nil {
		return withContext(ctx, err)
	}
	if _, err := w.Write(raw); err != nil {
		return withContext(ctx, err)
	}
	if err := w.Close(); err != nil {
		return withContext(ctx, err)
	}
	return withContext(ctx, c.Quit())
}

// withContext reports the context error in place of the I/O error it caused.
func withContext(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

// buildMIME renders msg as an RFC 5322 message. A message with both bodies
// becomes multipart/alternative.
func buildMIME(from string, msg Message, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})
	if msg.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*mail.Address{{Address: msg.ReplyTo}})
	}
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	if msg.HTML != "" && msg.Text != "" {
		mw, err := mail.CreateWriter(&buf, h)
		if err != nil {
			return nil, err
		}
		tw, err := mw.CreateInline()
		if err != nil {
			return nil, err
		}
		if err := writeInlinePart(tw, "text/plain", msg.Text); err != nil {
			return nil, err
		}
		if err := writeInlinePart(tw, "text/html", msg.HTML); err != nil {
			return nil, err
		}
		if err := tw.Close(); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	contentType, body := "text/plain", msg.Text
	if msg.HTML != "" {
		contentType, body = "text/html", msg.HTML
	}
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeInlinePart(tw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(ph)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return err
	}
	return w.Close()
}
