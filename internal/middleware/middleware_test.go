package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sentisense/internal/apperr"
	"sentisense/internal/auth"
	"sentisense/internal/models"
)

type tokenTable map[string]*models.User

func (t tokenTable) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := t[token]; ok {
		return u, nil
	}
	return nil, apperr.Unauthorized("Could not validate credentials")
}

func identityEcho(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.FromContext(r.Context()).Account(); ok {
		_, _ = w.Write([]byte(u.Username))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware(tokenTable{"good": {Username: "alice"}}, zap.NewNop())
	h := m.RequireAuth(http.HandlerFunc(identityEcho))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer good", http.StatusOK, "alice"},
		{"lowercase scheme", "bearer good", http.StatusOK, "alice"},
		{"missing", "", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`},
		{"bad token", "Bearer nope", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
				assert.JSONEq(t, tt.body, rec.Body.String())
			} else {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	m := NewAuthMiddleware(tokenTable{"good": {Username: "alice"}}, zap.NewNop())
	h := m.OptionalAuth(http.HandlerFunc(identityEcho))

	for header, want := range map[string]string{
		"Bearer good": "alice",
		"Bearer nope": "anonymous",
		"":            "anonymous",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, rec.Body.String(), header)
	}
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (c *memCounter) IncrWithExpire(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	return c.counts[key], nil
}

func TestRateLimit(t *testing.T) {
	counter := &memCounter{}
	h := RateLimit(counter, "auth", RateLimitConfig{RequestsPerMinute: 2, BurstSize: 1}, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 200, 429}, statuses)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	counter := &memCounter{err: errors.New("redis: connection refused")}
	h := RateLimit(counter, "auth", RateLimitConfig{RequestsPerMinute: 0}, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestZapRecoverer(t *testing.T) {
	h := ZapRecoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal server error"}`, rec.Body.String())
}

func TestMetricsAndLoggerPassThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Use(ZapRequestLogger(zap.NewNop()))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}
