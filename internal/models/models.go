package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AnalysisType names the kind of analysis recorded in the history ledger.
type AnalysisType string

const (
	AnalysisSentiment AnalysisType = "sentiment"
	AnalysisYouTube   AnalysisType = "youtube"
	AnalysisReddit    AnalysisType = "reddit"
)

func (t AnalysisType) Valid() bool {
	switch t {
	case AnalysisSentiment, AnalysisYouTube, AnalysisReddit:
		return true
	}
	return false
}

// AnalysisEntry is one recorded analysis result. Entries are never
// updated once written.
type AnalysisEntry struct {
	ID           string       `db:"id" json:"id"`
	UserID       string       `db:"user_id" json:"user_id"`
	AnalysisType AnalysisType `db:"analysis_type" json:"analysis_type"`
	NaturalKey   string       `db:"natural_key" json:"-"`
	KeyDigest    string       `db:"key_digest" json:"-"`
	Data         Payload      `db:"analysis_data" json:"analysis_data"`
	CreatedAt    time.Time    `db:"created_at" json:"timestamp"`
}

// Payload is an opaque JSON object. Values are restricted to what
// encoding/json produces (string, float64, bool, nil, []any, map[string]any)
// so that every store round-trips it identically.
type Payload map[string]any

// NewPayload converts v to a Payload through its JSON encoding.
func NewPayload(v any) (Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return p, nil
}

// String returns the field as a string; missing or non-string values
// give the empty string.
func (p Payload) String(field string) string {
	s, _ := p[field].(string)
	return s
}

// Clone returns a deep copy of p.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return Payload(cloneValue(map[string]any(p)).(map[string]any))
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case Payload:
		return v.Clone()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (p *Payload) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("payload: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, p)
}

// EmailQuota tracks contact-form sends per sender address.
type EmailQuota struct {
	Email           string    `db:"email" json:"email"`
	EmailsSentToday int       `db:"emails_sent_today" json:"emails_sent_today"`
	LastSentDate    time.Time `db:"last_sent_date" json:"last_sent_date"`
}

// Store errors shared by every backend.
var (
	ErrNotFound       = errors.New("record not found")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrEmailTaken     = errors.New("email already registered")
	ErrDuplicateEntry = errors.New("analysis entry already exists")
)
