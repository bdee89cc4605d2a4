package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/internal/repository"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

var (
	_ repository.UserRepository = (*UserRepository)(nil)
	_ repository.BlogRepository = (*BlogRepository)(nil)
)

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, r *UserRepository) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, r.Create(context.Background(), u))
	return u
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	seedUser(t, r)

	got, err := r.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	got, err = r.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	_, err = r.GetByUsername(ctx, "ALICE")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err = r.FindByUsernameOrEmail(ctx, "someone", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	_, err = r.FindByUsernameOrEmail(ctx, "bob", "bob@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	r := NewUserRepository()
	seedUser(t, r)

	err := r.Create(context.Background(), &domain.User{ID: "u-2", Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	err = r.Create(context.Background(), &domain.User{ID: "u-3", Username: "bob", Email: "alice@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestUserRepository_ExcludeSecrets(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	seedUser(t, r)
	_, err := r.UpdateByID(ctx, "u-1", repository.UserUpdate{RefreshToken: strPtr("rt")}, repository.UpdateOptions{SkipValidation: true})
	require.NoError(t, err)

	got, err := r.GetByID(ctx, "u-1", repository.ExcludeSecrets())
	require.NoError(t, err)
	assert.Empty(t, got.PasswordHash)
	assert.Nil(t, got.RefreshToken)
	assert.Equal(t, "alice", got.Username)
}

func TestUserRepository_UpdateByID(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	seedUser(t, r)

	got, err := r.UpdateByID(ctx, "u-1", repository.UserUpdate{RefreshToken: strPtr("rt-1")}, repository.UpdateOptions{SkipValidation: true})
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, "rt-1", *got.RefreshToken)
	assert.Equal(t, "hash", got.PasswordHash, "untouched fields are kept")

	// Returned values are copies.
	*got.RefreshToken = "mutated"
	again, err := r.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "rt-1", *again.RefreshToken)
}

func TestUserRepository_UpdateByID_Validation(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	seedUser(t, r)
	require.NoError(t, r.Create(ctx, &domain.User{ID: "u-2", Username: "bob", Email: "bob@example.com"}))

	_, err := r.UpdateByID(ctx, "u-1", repository.UserUpdate{Email: strPtr("not-an-email")}, repository.UpdateOptions{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = r.UpdateByID(ctx, "u-1", repository.UserUpdate{Email: strPtr("bob@example.com")}, repository.UpdateOptions{})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	_, err = r.UpdateByID(ctx, "missing", repository.UserUpdate{RefreshToken: strPtr("x")}, repository.UpdateOptions{SkipValidation: true})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_UnsetField_Idempotent(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	seedUser(t, r)
	_, err := r.UpdateByID(ctx, "u-1", repository.UserUpdate{RefreshToken: strPtr("rt")}, repository.UpdateOptions{SkipValidation: true})
	require.NoError(t, err)

	require.NoError(t, r.UnsetField(ctx, "u-1", domain.FieldRefreshToken))
	require.NoError(t, r.UnsetField(ctx, "u-1", domain.FieldRefreshToken))

	got, err := r.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got.RefreshToken)
	assert.Equal(t, "hash", got.PasswordHash)

	assert.ErrorIs(t, r.UnsetField(ctx, "missing", domain.FieldRefreshToken), apperrors.ErrNotFound)
	assert.ErrorIs(t, r.UnsetField(ctx, "u-1", domain.UserField("password")), apperrors.ErrInvalidInput)
}

func TestBlogRepository(t *testing.T) {
	r := NewBlogRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, r.Create(ctx, &domain.Blog{ID: "b-1", Title: "First", Content: "one", AuthorID: "u-1", CreatedAt: base}))
	require.NoError(t, r.Create(ctx, &domain.Blog{ID: "b-2", Title: "Second", Content: "two", AuthorID: "u-1", CreatedAt: base.Add(time.Minute)}))

	err := r.Create(ctx, &domain.Blog{ID: "b-3", Title: "  FIRST ", Content: "dup", AuthorID: "u-2"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	got, err := r.GetByTitle(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "b-1", got.ID)

	got, err = r.GetByID(ctx, "b-2")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Title)

	_, err = r.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	blogs, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, blogs, 2)
	assert.Equal(t, "b-2", blogs[0].ID)
	assert.Equal(t, "b-1", blogs[1].ID)
}

func TestBlogRepository_ListEmpty(t *testing.T) {
	blogs, err := NewBlogRepository().List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, blogs)
	assert.Empty(t, blogs)
}
