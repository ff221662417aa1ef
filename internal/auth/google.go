package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"sentisense/internal/apperr"
)

// GoogleProfile is the subset of Google's userinfo the sign-in flows use.
type GoogleProfile struct {
	Email         string
	VerifiedEmail bool
	Name          string
}

// ProfileFetcher exchanges a Google OAuth access token for profile info.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (*GoogleProfile, error)
}

// GoogleUserInfo calls the Google OAuth2 userinfo API.
type GoogleUserInfo struct {
	opts []option.ClientOption
}

// NewGoogleUserInfo returns a fetcher. Extra client options are appended
// after the per-call token source, e.g. to point at a test endpoint.
func NewGoogleUserInfo(opts ...option.ClientOption) *GoogleUserInfo {
	return &GoogleUserInfo{opts: opts}
}

func (g *GoogleUserInfo) FetchProfile(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, g.opts...)

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusBadRequest) {
			return nil, apperr.Validation("Unable to fetch user info from Google")
		}
		return nil, apperr.Upstream("Unable to fetch user info from Google", err)
	}
	if info.Email == "" {
		return nil, apperr.Validation("Google account has no email address")
	}
	return &GoogleProfile{
		Email:         info.Email,
		VerifiedEmail: info.VerifiedEmail != nil && *info.VerifiedEmail,
		Name:          info.Name,
	}, nil
}
