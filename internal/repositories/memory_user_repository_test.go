package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authguard/internal/authz"
	"authguard/internal/models"
)

func TestMemoryUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	code := "482913"
	u := &models.User{ID: "id-1", Email: "a@x.com", PasswordHash: "h", Role: authz.RoleUser, VerificationCode: &code}
	require.NoError(t, repo.Create(ctx, u))
	assert.False(t, u.CreatedAt.IsZero())

	err := repo.Create(ctx, &models.User{ID: "id-2", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	got, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	require.NotNil(t, got.VerificationCode)
	assert.Equal(t, "482913", *got.VerificationCode)

	// returned records are copies
	*got.VerificationCode = "tampered"
	again, err := repo.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "482913", *again.VerificationCode)

	_, err = repo.FindByEmail(ctx, "b@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryUserRepository_Updates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	require.NoError(t, repo.Create(ctx, &models.User{ID: "id-1", Email: "a@x.com", PasswordHash: "old", Role: authz.RoleUser}))

	require.NoError(t, repo.UpdatePassword(ctx, "a@x.com", "new"))
	code := "123456"
	require.NoError(t, repo.UpdateVerification(ctx, "a@x.com", &code, false))

	u, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "new", u.PasswordHash)
	assert.Equal(t, "123456", *u.VerificationCode)
	assert.False(t, u.IsVerified)
	assert.Nil(t, u.VerifiedAt)

	require.NoError(t, repo.UpdateVerification(ctx, "a@x.com", nil, true))
	u, err = repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, u.VerificationCode)
	assert.True(t, u.IsVerified)
	assert.NotNil(t, u.VerifiedAt)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "b@x.com", "x"), ErrUserNotFound)
	assert.ErrorIs(t, repo.UpdateVerification(ctx, "b@x.com", nil, true), ErrUserNotFound)
}

func TestMemoryUserRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		require.NoError(t, repo.Create(ctx, &models.User{ID: e, Email: e, Role: authz.RoleUser}))
	}

	page, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = repo.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}
