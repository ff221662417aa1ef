package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	SubjectWelcome   = "Welcome to Our Service!"
	SubjectReset     = "Password Reset Request"
	SubjectAutoReply = "Thank you for contacting Sentiment Sense"
)

// Composer renders the transactional emails.
type Composer struct {
	support string
}

// NewComposer returns a composer that points readers at the support address.
func NewComposer(support string) *Composer {
	return &Composer{support: support}
}

func (c *Composer) Welcome(to, username string) (Message, error) {
	return c.render("welcome", to, SubjectWelcome, map[string]any{
		"Username": username,
		"Support":  c.support,
	})
}

func (c *Composer) Login(to, username string) (Message, error) {
	return c.render("login", to, SubjectWelcome, map[string]any{
		"Username": username,
		"Support":  c.support,
	})
}

func (c *Composer) PasswordReset(to, link string, expiry time.Duration) (Message, error) {
	return c.render("reset", to, SubjectReset, map[string]any{
		"Link":   link,
		"Expiry": fmt.Sprintf("%d minutes", int(expiry.Minutes())),
	})
}

func (c *Composer) ContactAutoReply(to string) (Message, error) {
	return c.render("autoreply", to, SubjectAutoReply, nil)
}

// ContactForward builds the copy of a contact form submission that goes to
// the support inbox. The body is sent as plain text, as typed.
func (c *Composer) ContactForward(sender, subject, body string) Message {
	return Message{
		Kind:    "contact",
		To:      c.support,
		ReplyTo: sender,
		Subject: fmt.Sprintf("%s - From: %s", subject, sender),
		Text:    body,
	}
}

func (c *Composer) render(name, to, subject string, data any) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", name, err)
	}
	return Message{Kind: name, To: to, Subject: subject, HTML: buf.String()}, nil
}
