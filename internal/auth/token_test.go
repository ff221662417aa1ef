package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", 400*time.Minute, time.Hour)

	token, err := issuer.IssueAccess("alice")
	require.NoError(t, err)
	subject, err := issuer.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestResetTokenIsNotASessionToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour)

	reset, err := issuer.IssueReset("a@x.com")
	require.NoError(t, err)
	_, err = issuer.ParseAccess(reset)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, err := issuer.IssueAccess("alice")
	require.NoError(t, err)
	_, err = issuer.ParseReset(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredResetToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, 60*time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-61 * time.Minute) }
	token, err := issuer.IssueReset("a@x.com")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ParseReset(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenSignedWithOtherSecret(t *testing.T) {
	token, err := NewTokenIssuer("other", time.Hour, time.Hour).IssueReset("a@x.com")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour, time.Hour).ParseReset(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWithOtherAlgorithm(t *testing.T) {
	claims := Claims{
		Purpose: purposePasswordReset,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a@x.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour, time.Hour).ParseReset(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWithoutSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour, time.Hour).ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
}
