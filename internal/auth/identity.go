package auth

import (
	"context"

	"sentisense/internal/models"
)

// Identity is the resolved caller of a request: either Authenticated or
// Anonymous.
type Identity interface {
	// Account returns the authenticated user, or false for anonymous callers.
	Account() (*models.User, bool)
}

type Authenticated struct {
	User *models.User
}

func (a Authenticated) Account() (*models.User, bool) { return a.User, a.User != nil }

type Anonymous struct{}

func (Anonymous) Account() (*models.User, bool) { return nil, false }

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored on ctx, Anonymous when none is.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok && id != nil {
		return id
	}
	return Anonymous{}
}
