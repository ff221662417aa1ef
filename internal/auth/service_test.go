package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sentisense/internal/apperr"
	"sentisense/internal/notify"
	"sentisense/internal/store/memstore"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchProfile(ctx context.Context, token string) (*GoogleProfile, error) {
	args := m.Called(ctx, token)
	if p := args.Get(0); p != nil {
		return p.(*GoogleProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

type memOutbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *memOutbox) Enqueue(msg notify.Message) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return true
}

func (o *memOutbox) last() notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.msgs[len(o.msgs)-1]
}

type fixture struct {
	svc    *Service
	users  *memstore.Users
	google *mockFetcher
	outbox *memOutbox
	tokens *TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  memstore.NewUsers(),
		google: &mockFetcher{},
		outbox: &memOutbox{},
		tokens: NewTokenIssuer("test-secret", 400*time.Minute, 60*time.Minute),
	}
	f.svc = NewService(ServiceDeps{
		Users:    f.users,
		Tokens:   f.tokens,
		Google:   f.google,
		Composer: notify.NewComposer("support@sense.io"),
		Outbox:   f.outbox,
		BaseURL:  "http://sentiment-sense.netlify.app/",
		Logger:   zap.NewNop(),
	})
	return f
}

func TestRegisterConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "alice", "b@x.com", "pw")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "Username already taken", apperr.Detail(err))

	_, err = f.svc.Register(ctx, "bob", "a@x.com", "pw")
	assert.Equal(t, "Email already registered", apperr.Detail(err))

	_, err = f.svc.Register(ctx, "alice", "a@x.com", "pw")
	assert.Equal(t, "Email already registered", apperr.Detail(err), "email is checked first")
}

func TestRegisterQueuesWelcomeEmail(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.Register(context.Background(), "alice", "a@x.com", "pw")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "pw", user.PasswordHash)
	msg := f.outbox.last()
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, notify.SubjectWelcome, msg.Subject)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw")
	require.NoError(t, err)

	for _, credential := range []string{"alice", "a@x.com"} {
		session, err := f.svc.Login(ctx, credential, "pw")
		require.NoError(t, err, credential)
		assert.Equal(t, "alice", session.User.Username)

		user, err := f.svc.Authenticate(ctx, session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", user.Email)
	}

	_, err = f.svc.Login(ctx, "alice", "wrong")
	assert.Equal(t, "Invalid username/email or password", apperr.Detail(err))
	_, err = f.svc.Login(ctx, "nobody", "pw")
	assert.Equal(t, "Invalid username/email or password", apperr.Detail(err))
}

func TestAuthenticateRejectsUnknownUser(t *testing.T) {
	f := newFixture(t)
	token, err := f.tokens.IssueAccess("ghost")
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Equal(t, "Could not validate credentials", apperr.Detail(err))
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "old")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "bob", "b@x.com", "bobs")
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))
	msg := f.outbox.last()
	assert.Equal(t, notify.SubjectReset, msg.Subject)
	token := resetTokenFrom(t, msg.HTML)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "new"))

	_, err = f.svc.Login(ctx, "alice", "new")
	assert.NoError(t, err)
	_, err = f.svc.Login(ctx, "alice", "old")
	assert.Error(t, err)
	_, err = f.svc.Login(ctx, "bob", "bobs")
	assert.NoError(t, err, "other users are untouched")
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ForgotPassword(context.Background(), "nobody@x.com")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestResetPasswordErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.ResetPassword(ctx, "not-a-token", "pw")
	assert.Equal(t, "Invalid or expired token.", apperr.Detail(err))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	token, err := f.tokens.IssueReset("gone@x.com")
	require.NoError(t, err)
	err = f.svc.ResetPassword(ctx, token, "pw")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "User not found.", apperr.Detail(err))
}

func TestGoogleSignupAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.google.On("FetchProfile", mock.Anything, "g-token").
		Return(&GoogleProfile{Email: "g@x.com", VerifiedEmail: true}, nil)

	session, err := f.svc.GoogleSignup(ctx, "g-token", "gina", "pw")
	require.NoError(t, err)
	assert.Equal(t, "g@x.com", session.User.Email)
	assert.NotEmpty(t, session.AccessToken)

	session, err = f.svc.GoogleLogin(ctx, "g-token")
	require.NoError(t, err)
	assert.Equal(t, "gina", session.User.Username)

	_, err = f.svc.GoogleSignup(ctx, "g-token", "gina2", "pw")
	assert.Equal(t, "Email already registered", apperr.Detail(err))
	f.google.AssertExpectations(t)
}

func TestGoogleUnverifiedEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.google.On("FetchProfile", mock.Anything, "unverified").
		Return(&GoogleProfile{Email: "u@x.com"}, nil)

	_, err := f.svc.GoogleSignup(ctx, "unverified", "u", "pw")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.GoogleLogin(ctx, "unverified")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestGoogleLoginUnknownUser(t *testing.T) {
	f := newFixture(t)
	f.google.On("FetchProfile", mock.Anything, "t").
		Return(&GoogleProfile{Email: "new@x.com", VerifiedEmail: true}, nil)

	_, err := f.svc.GoogleLogin(context.Background(), "t")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCheckUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw")
	require.NoError(t, err)
	f.google.On("FetchProfile", mock.Anything, "t").
		Return(&GoogleProfile{Email: "a@x.com", VerifiedEmail: true}, nil)
	f.google.On("FetchProfile", mock.Anything, "bad").
		Return(nil, apperr.Validation("Unable to fetch user info from Google"))

	assert.NoError(t, f.svc.CheckUser(ctx, "bob", "b@x.com", ""))
	assert.Equal(t, "Username already taken", apperr.Detail(f.svc.CheckUser(ctx, "alice", "b@x.com", "")))
	assert.Equal(t, "Email already registered", apperr.Detail(f.svc.CheckUser(ctx, "bob", "", "t")))
	assert.Equal(t, "Unable to fetch user info from Google", apperr.Detail(f.svc.CheckUser(ctx, "bob", "", "bad")))
}

type failingOutbox struct{}

func (failingOutbox) Enqueue(notify.Message) bool { return false }

func TestNotificationOutageDoesNotFailAuth(t *testing.T) {
	f := newFixture(t)
	f.svc.outbox = failingOutbox{}
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw")
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
}

func resetTokenFrom(t *testing.T, html string) string {
	t.Helper()
	const marker = `href="`
	i := strings.Index(html, marker)
	require.GreaterOrEqual(t, i, 0, "reset link not found")
	rest := html[i+len(marker):]
	link := rest[:strings.Index(rest, `"`)]
	link = strings.ReplaceAll(link, "&amp;", "&")
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", u.Path)
	token := u.Query().Get("token")
	require.NotEmpty(t, token, link)
	return token
}
