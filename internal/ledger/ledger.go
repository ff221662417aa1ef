// Package ledger records analysis results per user, keeping exactly one
// entry per (user, analysis type, natural key).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"sentisense/internal/auth"
	"sentisense/internal/crypto"
	"sentisense/internal/models"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrUnknownKind = errors.New("unknown analysis type")
)

var lookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ledger_lookups_total",
		Help: "Analysis history lookups by type and outcome",
	},
	[]string{"analysis_type", "outcome"},
)

// Store persists entries. Implementations must enforce uniqueness of
// (UserID, AnalysisType, KeyDigest).
type Store interface {
	// Insert writes e, filling in e.ID. It returns models.ErrDuplicateEntry
	// when the natural key is already taken.
	Insert(ctx context.Context, e *models.AnalysisEntry) error
	// FindByKey returns models.ErrNotFound when no entry matches.
	FindByKey(ctx context.Context, userID string, kind models.AnalysisType, digest string) (*models.AnalysisEntry, error)
	// ListByUser returns the user's entries, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.AnalysisEntry, error)
}

type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// NaturalKeyField returns the payload field that identifies an analysis
// of the given type.
func NaturalKeyField(kind models.AnalysisType) (string, error) {
	switch kind {
	case models.AnalysisYouTube:
		return "video_id", nil
	case models.AnalysisReddit:
		return "post_id", nil
	case models.AnalysisSentiment:
		return "text", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Lookup returns the caller's existing entry for key, if any.
// Anonymous callers never have entries.
func (s *Service) Lookup(ctx context.Context, id auth.Identity, kind models.AnalysisType, key string) (*models.AnalysisEntry, bool, error) {
	if !kind.Valid() {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	user, ok := id.Account()
	if !ok {
		return nil, false, nil
	}
	entry, err := s.store.FindByKey(ctx, user.ID, kind, s.digest(kind, key))
	if errors.Is(err, models.ErrNotFound) {
		lookups.WithLabelValues(string(kind), "miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup %s entry: %w", kind, err)
	}
	lookups.WithLabelValues(string(kind), "hit").Inc()
	return entry, true, nil
}

// RecordOrFetch stores payload for an authenticated caller unless an entry
// with the same natural key exists, in which case that entry is returned
// unchanged. Anonymous callers get an unsaved entry wrapping payload.
func (s *Service) RecordOrFetch(ctx context.Context, id auth.Identity, kind models.AnalysisType, payload models.Payload) (*models.AnalysisEntry, error) {
	field, err := NaturalKeyField(kind)
	if err != nil {
		return nil, err
	}
	user, ok := id.Account()
	if !ok {
		return &models.AnalysisEntry{AnalysisType: kind, Data: payload, CreatedAt: s.now().UTC()}, nil
	}

	key := naturalKey(payload, field)
	entry := &models.AnalysisEntry{
		UserID:       user.ID,
		AnalysisType: kind,
		NaturalKey:   key,
		KeyDigest:    s.digest(kind, key),
		Data:         payload,
		CreatedAt:    s.now().UTC(),
	}

	err = s.store.Insert(ctx, entry)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, models.ErrDuplicateEntry) {
		return nil, fmt.Errorf("insert %s entry: %w", kind, err)
	}

	existing, err := s.store.FindByKey(ctx, user.ID, kind, entry.KeyDigest)
	if err != nil {
		return nil, fmt.Errorf("fetch existing %s entry: %w", kind, err)
	}
	s.logger.Debug("analysis already recorded",
		zap.String("user_id", user.ID),
		zap.String("analysis_type", string(kind)),
		zap.String("entry_id", existing.ID),
	)
	return existing, nil
}

// ListHistory returns every entry of the caller, newest first.
func (s *Service) ListHistory(ctx context.Context, id auth.Identity) ([]models.AnalysisEntry, error) {
	user, ok := id.Account()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	entries, err := s.store.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if entries == nil {
		entries = []models.AnalysisEntry{}
	}
	return entries, nil
}

func (s *Service) digest(kind models.AnalysisType, key string) string {
	return crypto.Digest(string(kind), key)
}

func naturalKey(p models.Payload, field string) string {
	switch v := p[field].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
