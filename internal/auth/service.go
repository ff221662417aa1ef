package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"sentisense/internal/apperr"
	"sentisense/internal/models"
	"sentisense/internal/notify"
)

const (
	msgEmailTaken    = "Email already registered"
	msgUsernameTaken = "Username already taken"
	msgBadLogin      = "Invalid username/email or password"
	msgBadCreds      = "Could not validate credentials"
	msgBadReset      = "Invalid or expired token."
	msgUnverified    = "Email Not Verified By Google"
)

type UserStore interface {
	// Create inserts u, filling in u.ID. It returns models.ErrUsernameTaken
	// or models.ErrEmailTaken on a uniqueness violation.
	Create(ctx context.Context, u *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByCredential matches either username or email.
	FindByCredential(ctx context.Context, credential string) (*models.User, error)
	UpdatePassword(ctx context.Context, email, hash string) error
}

// Outbox accepts emails for background delivery.
type Outbox interface {
	Enqueue(msg notify.Message) bool
}

type Service struct {
	users    UserStore
	tokens   *TokenIssuer
	google   ProfileFetcher
	composer *notify.Composer
	outbox   Outbox
	baseURL  string
	logger   *zap.Logger
}

type ServiceDeps struct {
	Users    UserStore
	Tokens   *TokenIssuer
	Google   ProfileFetcher
	Composer *notify.Composer
	Outbox   Outbox
	// BaseURL is the frontend origin for password reset links.
	BaseURL string
	Logger  *zap.Logger
}

func NewService(d ServiceDeps) *Service {
	return &Service{
		users:    d.Users,
		tokens:   d.Tokens,
		google:   d.Google,
		composer: d.Composer,
		outbox:   d.Outbox,
		baseURL:  strings.TrimRight(d.BaseURL, "/"),
		logger:   d.Logger,
	}
}

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken string
	User        *models.User
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("username", user.Username))
	s.notify(func() (notify.Message, error) { return s.composer.Welcome(user.Email, user.Username) })
	return user, nil
}

func (s *Service) Login(ctx context.Context, credential, password string) (*Session, error) {
	user, err := s.users.FindByCredential(ctx, credential)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.Validation(msgBadLogin)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, apperr.Validation(msgBadLogin)
	}
	return s.startSession(user)
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	username, err := s.tokens.ParseAccess(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, msgBadCreds, err)
	}
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.Unauthorized(msgBadCreds)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// CheckUser reports whether username and email are free. With a Google
// token the email comes from the Google profile instead.
func (s *Service) CheckUser(ctx context.Context, username, email, googleToken string) error {
	if googleToken != "" {
		profile, err := s.google.FetchProfile(ctx, googleToken)
		if err != nil {
			return err
		}
		if !profile.VerifiedEmail {
			return apperr.Validation("Email is not verified")
		}
		email = profile.Email
	}
	return s.ensureAvailable(ctx, username, email)
}

func (s *Service) GoogleSignup(ctx context.Context, googleToken, username, password string) (*Session, error) {
	profile, err := s.google.FetchProfile(ctx, googleToken)
	if err != nil {
		return nil, err
	}
	if !profile.VerifiedEmail {
		return nil, apperr.Forbidden(msgUnverified)
	}
	if err := s.ensureAvailable(ctx, username, profile.Email); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, username, profile.Email, password)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user signed up with google", zap.String("username", user.Username))
	s.notify(func() (notify.Message, error) { return s.composer.Welcome(user.Email, user.Username) })

	token, err := s.tokens.IssueAccess(user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{AccessToken: token, User: user}, nil
}

func (s *Service) GoogleLogin(ctx context.Context, googleToken string) (*Session, error) {
	profile, err := s.google.FetchProfile(ctx, googleToken)
	if err != nil {
		return nil, err
	}
	if !profile.VerifiedEmail {
		return nil, apperr.Validation("Email is not verified")
	}
	user, err := s.users.FindByEmail(ctx, profile.Email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound("User not found. Please sign up first.")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.startSession(user)
}

// ForgotPassword emails a reset link to a registered address.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return apperr.NotFound("No user with this email. Please sign up first.")
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	token, err := s.tokens.IssueReset(email)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	link := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	s.notify(func() (notify.Message, error) {
		return s.composer.PasswordReset(email, link, s.tokens.resetTTL)
	})
	return nil
}

// ResetPassword overwrites the password of the email named in token.
// Tokens stay valid until they expire.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := s.tokens.ParseReset(token)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, msgBadReset, err)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.users.UpdatePassword(ctx, email, hash)
	if errors.Is(err, models.ErrNotFound) {
		return apperr.NotFound("User not found.")
	}
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info("password reset", zap.String("email", email))
	return nil
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	if email != "" {
		_, err := s.users.FindByEmail(ctx, email)
		if err == nil {
			return apperr.Conflict(msgEmailTaken)
		}
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("find user by email: %w", err)
		}
	}
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return apperr.Conflict(msgUsernameTaken)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("find user by username: %w", err)
	}
	return nil
}

func (s *Service) createUser(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.users.Create(ctx, user)
	switch {
	case errors.Is(err, models.ErrEmailTaken):
		return nil, apperr.Conflict(msgEmailTaken)
	case errors.Is(err, models.ErrUsernameTaken):
		return nil, apperr.Conflict(msgUsernameTaken)
	case err != nil:
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Service) startSession(user *models.User) (*Session, error) {
	token, err := s.tokens.IssueAccess(user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.notify(func() (notify.Message, error) { return s.composer.Login(user.Email, user.Username) })
	return &Session{AccessToken: token, User: user}, nil
}

// notify renders and queues an email. Failures are logged only.
func (s *Service) notify(build func() (notify.Message, error)) {
	msg, err := build()
	if err != nil {
		s.logger.Error("failed to render email", zap.Error(err))
		return
	}
	s.outbox.Enqueue(msg)
}
