package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const purposePasswordReset = "password_reset"

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session and password reset tokens.
type TokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, resetTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		resetTTL:  resetTTL,
		now:       time.Now,
	}
}

// IssueAccess returns a session token whose subject is the username.
func (t *TokenIssuer) IssueAccess(username string) (string, error) {
	return t.sign(username, "", t.accessTTL)
}

// IssueReset returns a password reset token whose subject is the email.
func (t *TokenIssuer) IssueReset(email string) (string, error) {
	return t.sign(email, purposePasswordReset, t.resetTTL)
}

// ParseAccess verifies a session token and returns its subject.
// Reset tokens are rejected.
func (t *TokenIssuer) ParseAccess(token string) (string, error) {
	claims, err := t.parse(token)
	if err != nil {
		return "", err
	}
	if claims.Purpose != "" {
		return "", fmt.Errorf("%w: unexpected purpose %q", ErrInvalidToken, claims.Purpose)
	}
	return claims.Subject, nil
}

// ParseReset verifies a password reset token and returns the email it was
// issued for.
func (t *TokenIssuer) ParseReset(token string) (string, error) {
	claims, err := t.parse(token)
	if err != nil {
		return "", err
	}
	if claims.Purpose != purposePasswordReset {
		return "", fmt.Errorf("%w: not a reset token", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (t *TokenIssuer) sign(subject, purpose string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *TokenIssuer) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
