package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/internal/repository"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

var _ repository.UserRepository = (*UserRepository)(nil)

func usersNS(mt *mtest.T) string {
	return mt.DB.Name() + "." + usersCollection
}

func userDoc(refreshToken string) bson.D {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := bson.D{
		{Key: "_id", Value: "u-1"},
		{Key: "username", Value: "alice"},
		{Key: "email", Value: "alice@example.com"},
		{Key: "password", Value: "$2a$10$hash"},
		{Key: "createdAt", Value: created},
		{Key: "updatedAt", Value: created},
	}
	if refreshToken != "" {
		doc = append(doc, bson.E{Key: "refreshToken", Value: refreshToken})
	}
	return doc
}

func TestUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.Create(ctx, &domain.User{ID: "u-1", Username: "alice", Email: "alice@example.com"})
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "insert", started.CommandName)
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))

		err := repo.Create(ctx, &domain.User{ID: "u-1", Username: "alice"})
		assert.ErrorIs(mt, err, apperrors.ErrAlreadyExists)
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch, userDoc("rt-1")))

		u, err := repo.GetByID(ctx, "u-1")
		require.NoError(mt, err)
		assert.Equal(mt, "alice", u.Username)
		assert.Equal(mt, "$2a$10$hash", u.PasswordHash)
		require.NotNil(mt, u.RefreshToken)
		assert.Equal(mt, "rt-1", *u.RefreshToken)
	})

	mt.Run("get by id excluding secrets", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u-1"},
			{Key: "username", Value: "alice"},
			{Key: "email", Value: "alice@example.com"},
		}))

		u, err := repo.GetByID(ctx, "u-1", repository.ExcludeSecrets())
		require.NoError(mt, err)
		assert.Empty(mt, u.PasswordHash)
		assert.Nil(mt, u.RefreshToken)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		projection, err := started.Command.LookupErr("projection")
		require.NoError(mt, err)
		assert.Equal(mt, int32(0), projection.Document().Lookup("password").Int32())
		assert.Equal(mt, int32(0), projection.Document().Lookup("refreshToken").Int32())
	})

	mt.Run("get by username not found", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch))

		u, err := repo.GetByUsername(ctx, "nobody")
		assert.Nil(mt, u)
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("get by email", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch, userDoc("")))

		u, err := repo.GetByEmail(ctx, "alice@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, "u-1", u.ID)
		assert.Nil(mt, u.RefreshToken)
	})

	mt.Run("find by username or email", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch, userDoc("")))

		u, err := repo.FindByUsernameOrEmail(ctx, "bob", "alice@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, "alice", u.Username)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		filter := started.Command.Lookup("filter").Document()
		_, err = filter.LookupErr("$or")
		assert.NoError(mt, err)
	})

	mt.Run("update refresh token", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: userDoc("rt-2")}))

		token := "rt-2"
		u, err := repo.UpdateByID(ctx, "u-1",
			repository.UserUpdate{RefreshToken: &token},
			repository.UpdateOptions{SkipValidation: true})
		require.NoError(mt, err)
		require.NotNil(mt, u.RefreshToken)
		assert.Equal(mt, "rt-2", *u.RefreshToken)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)
		set := started.Command.Lookup("update").Document().Lookup("$set").Document()
		assert.Equal(mt, "rt-2", set.Lookup("refreshToken").StringValue())
		_, err = set.LookupErr("password")
		assert.Error(mt, err, "password must not be rewritten")
	})

	mt.Run("update missing user", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		token := "rt"
		_, err := repo.UpdateByID(ctx, "missing",
			repository.UserUpdate{RefreshToken: &token},
			repository.UpdateOptions{SkipValidation: true})
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("update email conflict", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 11000, Message: "E11000 duplicate key error", Name: "DuplicateKey",
		}))

		email := "bob@example.com"
		_, err := repo.UpdateByID(ctx, "u-1", repository.UserUpdate{Email: &email}, repository.UpdateOptions{})
		assert.ErrorIs(mt, err, apperrors.ErrAlreadyExists)
	})

	mt.Run("update rejects invalid email before writing", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)

		email := "not-an-email"
		_, err := repo.UpdateByID(ctx, "u-1", repository.UserUpdate{Email: &email}, repository.UpdateOptions{})
		assert.ErrorIs(mt, err, apperrors.ErrInvalidInput)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("unset refresh token", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(mt, repo.UnsetField(ctx, "u-1", domain.FieldRefreshToken))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		update := started.Command.Lookup("updates").Array().Index(0).Value().Document().Lookup("u").Document()
		unset := update.Lookup("$unset").Document()
		_, err := unset.LookupErr("refreshToken")
		assert.NoError(mt, err)
	})

	mt.Run("unset on missing user", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.UnsetField(ctx, "missing", domain.FieldRefreshToken)
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("unset unknown field", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)

		err := repo.UnsetField(ctx, "u-1", domain.UserField("password"))
		assert.ErrorIs(mt, err, apperrors.ErrInvalidInput)
	})
}

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates both collections' indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		require.NoError(mt, EnsureIndexes(context.Background(), mt.DB))

		users := mt.GetStartedEvent()
		require.NotNil(mt, users)
		assert.Equal(mt, "createIndexes", users.CommandName)
		assert.Equal(mt, usersCollection, users.Command.Lookup("createIndexes").StringValue())

		blogs := mt.GetStartedEvent()
		require.NotNil(mt, blogs)
		assert.Equal(mt, blogsCollection, blogs.Command.Lookup("createIndexes").StringValue())
	})

	mt.Run("propagates failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 86, Message: "index key specs conflict", Name: "IndexKeySpecsConflict",
		}))

		err := EnsureIndexes(context.Background(), mt.DB)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "create user indexes")
	})
}
