package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"authguard/internal/authz"
	"authguard/internal/logging"
	"authguard/internal/repositories"
)

type authFixture struct {
	repo     repositories.UserRepository
	tokens   *TokenService
	notifier *recordingNotifier
	svc      AuthService
	now      time.Time
}

func newAuthFixture(t *testing.T, codes ...string) *authFixture {
	t.Helper()
	now := time.Now()
	repo := repositories.NewMemoryUserRepository()
	tokens, err := NewTokenService([]byte("test-secret"), WithClock(fixedClock(now)))
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	opts := []VerificationOption{}
	if len(codes) > 0 {
		opts = append(opts, WithCodeGenerator(staticCodes(codes...)))
	}
	verification := NewVerificationService(repo, notifier, logging.Discard(), opts...)
	svc := NewAuthService(repo, tokens, verification, logging.Discard(), bcrypt.MinCost)
	return &authFixture{repo: repo, tokens: tokens, notifier: notifier, svc: svc, now: now}
}

func TestAuth_RegisterIssuesCodeAndEmails(t *testing.T) {
	f := newAuthFixture(t, "482913")
	ctx := context.Background()

	user, err := f.svc.Register(ctx, " A@x.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, authz.RoleUser, user.Role)
	assert.False(t, user.IsVerified)
	assert.Empty(t, user.PasswordHash)
	assert.Nil(t, user.VerificationCode)
	assert.NotEmpty(t, user.ID)

	stored := mustFind(f.repo, "a@x.com")
	require.NotNil(t, stored.VerificationCode)
	assert.Equal(t, "482913", *stored.VerificationCode)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@x.com", sent[0].To)
	assert.Equal(t, subjectVerifyEmail, sent[0].Subject)
	assert.Contains(t, sent[0].Body, "482913")
}

func TestAuth_RegisterDuplicate(t *testing.T) {
	f := newAuthFixture(t, "111111", "222222")
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "A@X.COM", "secret2")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAuth_RegisterSurvivesEmailFailure(t *testing.T) {
	f := newAuthFixture(t, "111111")
	f.notifier.outcome = OutcomeUnresponsive

	_, err := f.svc.Register(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Len(t, f.notifier.Sent(), 1)
}

func TestAuth_RegisterValidation(t *testing.T) {
	f := newAuthFixture(t, "111111")
	_, err := f.svc.Register(context.Background(), "", "secret1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Register(context.Background(), "a@x.com", "   ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Register(context.Background(), "a@x.com", strings.Repeat("p", 80))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuth_LoginIssuesRoleToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for _, role := range []authz.Role{authz.RoleAdmin, authz.RoleUser} {
		email := string(role) + "@x.com"
		created, err := f.svc.CreateUser(ctx, email, "pa55word", role)
		require.NoError(t, err)

		res, err := f.svc.Login(ctx, email, "pa55word")
		require.NoError(t, err)
		assert.Equal(t, "Bearer", res.TokenType)
		assert.Equal(t, created.ID, res.User.ID)
		assert.Empty(t, res.User.PasswordHash)
		assert.WithinDuration(t, f.now.Add(time.Hour), res.ExpiresAt, time.Second)

		claims, err := f.tokens.Parse(res.Token)
		require.NoError(t, err)
		assert.Equal(t, role, claims.Role)
		assert.Equal(t, created.ID, claims.Subject)
		assert.WithinDuration(t, f.now.Add(3600*time.Second), claims.ExpiresAt.Time, time.Second)
	}
}

func TestAuth_LoginDoesNotRequireVerification(t *testing.T) {
	f := newAuthFixture(t, "111111")
	_, err := f.svc.Register(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "a@x.com", "secret1")
	assert.NoError(t, err)
}

func TestAuth_LoginFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, "a@x.com", "right-pass", authz.RoleUser)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "nobody@x.com", "right-pass")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Login(ctx, "a@x.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_CreateUserRejectsUnknownRole(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.CreateUser(context.Background(), "a@x.com", "secret1", authz.Role("root"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.notifier.Sent())
}

func TestAuth_ChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, err := f.svc.CreateUser(ctx, "a@x.com", "old-pass", authz.RoleUser)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, u.ID, "bad", "new-pass"), ErrInvalidCredentials)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "ghost", "old-pass", "new-pass"), ErrNotFound)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, u.ID, "old-pass", " "), ErrValidation)

	require.NoError(t, f.svc.ChangePassword(ctx, u.ID, "old-pass", "new-pass"))
	_, err = f.svc.Login(ctx, "a@x.com", "old-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "a@x.com", "new-pass")
	assert.NoError(t, err)
}

func TestAuth_GetAndListUsers(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	a, err := f.svc.CreateUser(ctx, "a@x.com", "secret1", authz.RoleAdmin)
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, "b@x.com", "secret1", authz.RoleUser)
	require.NoError(t, err)

	got, err := f.svc.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Empty(t, got.PasswordHash)

	_, err = f.svc.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := f.svc.ListUsers(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
	}
}

func newAuthServiceOn(t *testing.T, repo repositories.UserRepository, notifier Notifier, codes ...string) AuthService {
	t.Helper()
	tokens, err := NewTokenService([]byte("test-secret"))
	require.NoError(t, err)
	verification := NewVerificationService(repo, notifier, logging.Discard(), WithCodeGenerator(staticCodes(codes...)))
	return NewAuthService(repo, tokens, verification, logging.Discard(), bcrypt.MinCost)
}

func TestAuth_RegisterStoresCodeWithRecord(t *testing.T) {
	base := repositories.NewMemoryUserRepository()
	repo := &failingRepo{UserRepository: base, failUpdateVerification: errors.New("db down")}
	notifier := &recordingNotifier{}
	svc := newAuthServiceOn(t, repo, notifier, "482913")

	_, err := svc.Register(context.Background(), "p@x.com", "secret1")
	require.NoError(t, err)

	stored := mustFind(base, "p@x.com")
	require.NotNil(t, stored.VerificationCode)
	assert.Equal(t, "482913", *stored.VerificationCode)
	assert.False(t, stored.IsVerified)
	assert.Len(t, notifier.Sent(), 1)
}

func TestAuth_RegisterInsertFailureLeavesNothingBehind(t *testing.T) {
	base := repositories.NewMemoryUserRepository()
	repo := &failingRepo{UserRepository: base, failCreate: errors.New("db down")}
	notifier := &recordingNotifier{}
	svc := newAuthServiceOn(t, repo, notifier, "111111", "222222")
	ctx := context.Background()

	_, err := svc.Register(ctx, "p@x.com", "secret1")
	require.Error(t, err)
	_, err = base.FindByEmail(ctx, "p@x.com")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
	assert.Empty(t, notifier.Sent())

	repo.failCreate = nil
	_, err = svc.Register(ctx, "p@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "222222", *mustFind(base, "p@x.com").VerificationCode)
}
