package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentisense/internal/apperr"
	"sentisense/internal/models"
)

type QuotaStore interface {
	// Get returns models.ErrNotFound for an address that never sent.
	Get(ctx context.Context, email string) (*models.EmailQuota, error)
	// Create inserts q unless a record for the address already exists.
	Create(ctx context.Context, q *models.EmailQuota) error
	Save(ctx context.Context, q *models.EmailQuota) error
}

// Quota limits contact form sends per sender address per UTC day. The
// daily reset happens lazily when the address next tries to send.
type Quota struct {
	store QuotaStore
	max   int
	now   func() time.Time
}

func NewQuota(store QuotaStore, maxPerDay int) *Quota {
	return &Quota{store: store, max: maxPerDay, now: time.Now}
}

// Allow returns the current quota for email, or a RateLimited error when
// the address has used up today's sends.
func (q *Quota) Allow(ctx context.Context, email string) (*models.EmailQuota, error) {
	now := q.now().UTC()
	current, err := q.store.Get(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		current = &models.EmailQuota{Email: email, LastSentDate: now}
		if err := q.store.Create(ctx, current); err != nil {
			return nil, fmt.Errorf("create email quota: %w", err)
		}
		return current, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get email quota: %w", err)
	}

	if day(current.LastSentDate).Before(day(now)) {
		current.EmailsSentToday = 0
		current.LastSentDate = now
		if err := q.store.Save(ctx, current); err != nil {
			return nil, fmt.Errorf("reset email quota: %w", err)
		}
	}
	if current.EmailsSentToday >= q.max {
		return nil, apperr.RateLimited(fmt.Sprintf("You've reached the daily limit of %d emails.", q.max))
	}
	return current, nil
}

// Record counts one successful send against current.
func (q *Quota) Record(ctx context.Context, current *models.EmailQuota) error {
	current.EmailsSentToday++
	current.LastSentDate = q.now().UTC()
	if err := q.store.Save(ctx, current); err != nil {
		return fmt.Errorf("save email quota: %w", err)
	}
	return nil
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
