package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sentisense/internal/models"
)

type QuotaStore struct {
	db *sqlx.DB
}

func NewQuotaStore(db *sqlx.DB) *QuotaStore {
	return &QuotaStore{db: db}
}

func (s *QuotaStore) Get(ctx context.Context, email string) (*models.EmailQuota, error) {
	var q models.EmailQuota
	err := s.db.GetContext(ctx, &q,
		`SELECT email, emails_sent_today, last_sent_date FROM email_limits WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select email quota: %w", err)
	}
	return &q, nil
}

func (s *QuotaStore) Create(ctx context.Context, q *models.EmailQuota) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO email_limits (email, emails_sent_today, last_sent_date)
VALUES (:email, :emails_sent_today, :last_sent_date)
ON CONFLICT (email) DO NOTHING`, q)
	if err != nil {
		return fmt.Errorf("insert email quota: %w", err)
	}
	return nil
}

func (s *QuotaStore) Save(ctx context.Context, q *models.EmailQuota) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO email_limits (email, emails_sent_today, last_sent_date)
VALUES (:email, :emails_sent_today, :last_sent_date)
ON CONFLICT (email) DO UPDATE SET
    emails_sent_today = EXCLUDED.emails_sent_today,
    last_sent_date = EXCLUDED.last_sent_date`, q)
	if err != nil {
		return fmt.Errorf("save email quota: %w", err)
	}
	return nil
}
