// Package memstore provides in-process stores for development and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"sentisense/internal/models"
)

type Users struct {
	mu    sync.RWMutex
	users map[string]*models.User // by id
}

func NewUsers() *Users {
	return &Users{users: make(map[string]*models.User)}
}

func (s *Users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return models.ErrEmailTaken
		}
		if existing.Username == u.Username {
			return models.ErrUsernameTaken
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	stored := *u
	s.users[u.ID] = &stored
	return nil
}

func (s *Users) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Username == username })
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email })
}

func (s *Users) FindByCredential(_ context.Context, credential string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Username == credential || u.Email == credential })
}

func (s *Users) UpdatePassword(_ context.Context, email, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u.PasswordHash = hash
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *Users) find(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			found := *u
			return &found, nil
		}
	}
	return nil, models.ErrNotFound
}

type Ledger struct {
	mu      sync.RWMutex
	entries map[string]models.AnalysisEntry // by user/type/digest
	inserts int
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]models.AnalysisEntry)}
}

func ledgerKey(userID string, kind models.AnalysisType, digest string) string {
	return strings.Join([]string{userID, string(kind), digest}, "\x00")
}

func (s *Ledger) Insert(_ context.Context, e *models.AnalysisEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := ledgerKey(e.UserID, e.AnalysisType, e.KeyDigest)
	if _, ok := s.entries[k]; ok {
		return models.ErrDuplicateEntry
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	stored := *e
	stored.Data = e.Data.Clone()
	s.entries[k] = stored
	s.inserts++
	return nil
}

func (s *Ledger) FindByKey(_ context.Context, userID string, kind models.AnalysisType, digest string) (*models.AnalysisEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[ledgerKey(userID, kind, digest)]
	if !ok {
		return nil, models.ErrNotFound
	}
	e.Data = e.Data.Clone()
	return &e, nil
}

func (s *Ledger) ListByUser(_ context.Context, userID string) ([]models.AnalysisEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AnalysisEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			e.Data = e.Data.Clone()
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Inserts reports how many entries were written.
func (s *Ledger) Inserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inserts
}

type Quotas struct {
	mu     sync.Mutex
	quotas map[string]models.EmailQuota
}

func NewQuotas() *Quotas {
	return &Quotas{quotas: make(map[string]models.EmailQuota)}
}

func (s *Quotas) Get(_ context.Context, email string) (*models.EmailQuota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotas[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &q, nil
}

func (s *Quotas) Create(_ context.Context, q *models.EmailQuota) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quotas[q.Email]; !ok {
		s.quotas[q.Email] = *q
	}
	return nil
}

func (s *Quotas) Save(_ context.Context, q *models.EmailQuota) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotas[q.Email] = *q
	return nil
}
