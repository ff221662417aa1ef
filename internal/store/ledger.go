package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sentisense/internal/models"
)

type LedgerStore struct {
	db *sqlx.DB
}

func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const entryColumns = `id, user_id, analysis_type, natural_key, key_digest, analysis_data, created_at`

// Insert relies on the (user_id, analysis_type, key_digest) constraint; a
// conflicting row is left untouched.
func (s *LedgerStore) Insert(ctx context.Context, e *models.AnalysisEntry) error {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO analysis_history (`+entryColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, analysis_type, key_digest) DO NOTHING`,
		id, e.UserID, string(e.AnalysisType), e.NaturalKey, e.KeyDigest, e.Data, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert analysis entry: %w", err)
	}
	if n == 0 {
		return models.ErrDuplicateEntry
	}
	e.ID = id
	return nil
}

func (s *LedgerStore) FindByKey(ctx context.Context, userID string, kind models.AnalysisType, digest string) (*models.AnalysisEntry, error) {
	var e models.AnalysisEntry
	err := s.db.GetContext(ctx, &e,
		`SELECT `+entryColumns+` FROM analysis_history WHERE user_id = $1 AND analysis_type = $2 AND key_digest = $3`,
		userID, string(kind), digest,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select analysis entry: %w", err)
	}
	return &e, nil
}

func (s *LedgerStore) ListByUser(ctx context.Context, userID string) ([]models.AnalysisEntry, error) {
	entries := []models.AnalysisEntry{}
	err := s.db.SelectContext(ctx, &entries,
		`SELECT `+entryColumns+` FROM analysis_history WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list analysis entries: %w", err)
	}
	return entries, nil
}
