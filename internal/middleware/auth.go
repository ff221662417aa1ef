package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sentisense/internal/apperr"
	"sentisense/internal/auth"
	"sentisense/internal/models"
	"sentisense/internal/respond"
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type AuthMiddleware struct {
	auth   Authenticator
	logger *zap.Logger
}

func NewAuthMiddleware(a Authenticator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{auth: a, logger: logger}
}

// RequireAuth rejects the request with 401 unless it carries a valid
// session token.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.resolve(r)
		if err != nil {
			respond.Error(w, r, m.logger, err)
			return
		}
		ctx := auth.WithIdentity(r.Context(), auth.Authenticated{User: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth never rejects; any failure leaves the caller Anonymous.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id auth.Identity = auth.Anonymous{}
		if user, err := m.resolve(r); err == nil {
			id = auth.Authenticated{User: user}
		} else if !apperr.Is(err, apperr.KindUnauthorized) {
			m.logger.Warn("optional auth failed", zap.Error(err))
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func (m *AuthMiddleware) resolve(r *http.Request) (*models.User, error) {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, apperr.Unauthorized("Could not validate credentials")
	}
	return m.auth.Authenticate(r.Context(), strings.TrimSpace(token))
}
