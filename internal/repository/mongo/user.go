package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/internal/repository"
	"github.com/Kodar11/Blog/pkg/database"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

var secretsProjection = bson.D{
	{Key: "password", Value: 0},
	{Key: "refreshToken", Value: 0},
}

// UserRepository implements repository.UserRepository on the users
// collection.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a new MongoDB-backed user repository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// Create inserts a new user document.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	ctx, end := database.TraceCommand(ctx, usersCollection, "insertOne")
	defer func() { end(err) }()

	if _, err = r.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("user", "username or email", u.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by _id.
func (r *UserRepository) GetByID(ctx context.Context, id string, opts ...repository.FindOption) (*domain.User, error) {
	findOpts := options.FindOne()
	if repository.ApplyFindOptions(opts...).ExcludeSecrets {
		findOpts.SetProjection(secretsProjection)
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}}, findOpts)
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "username", Value: username}})
}

// GetByEmail retrieves a user by exact email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// FindByUsernameOrEmail returns the first user matching either value.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "username", Value: username}},
		bson.D{{Key: "email", Value: email}},
	}}})
}

// UpdateByID $sets the non-nil fields of update and returns the document as
// it is after the write.
func (r *UserRepository) UpdateByID(ctx context.Context, id string, update repository.UserUpdate, opts repository.UpdateOptions) (_ *domain.User, err error) {
	if !opts.SkipValidation {
		if err := repository.ValidateUpdate(update); err != nil {
			return nil, err
		}
	}
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	set := bson.D{}
	if update.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *update.Email})
	}
	if update.PasswordHash != nil {
		set = append(set, bson.E{Key: "password", Value: *update.PasswordHash})
	}
	if update.RefreshToken != nil {
		set = append(set, bson.E{Key: "refreshToken", Value: *update.RefreshToken})
	}
	set = append(set, bson.E{Key: "updatedAt", Value: time.Now().UTC()})

	ctx, end := database.TraceCommand(ctx, usersCollection, "findOneAndUpdate")
	defer func() { endIgnoringNotFound(end, err) }()

	var u domain.User
	err = r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) && update.Email != nil {
			return nil, apperrors.AlreadyExists("user", "email", *update.Email)
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &u, nil
}

// UnsetField $unsets a single field. Unsetting an absent field succeeds as
// long as the document exists.
func (r *UserRepository) UnsetField(ctx context.Context, id string, field domain.UserField) (err error) {
	if field != domain.FieldRefreshToken {
		return fmt.Errorf("%w: cannot unset field %q", apperrors.ErrInvalidInput, field)
	}

	ctx, end := database.TraceCommand(ctx, usersCollection, "updateOne")
	defer func() { endIgnoringNotFound(end, err) }()

	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{
			{Key: "$unset", Value: bson.D{{Key: string(field), Value: 1}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
		},
	)
	if err != nil {
		return fmt.Errorf("unset user %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D, opts ...*options.FindOneOptions) (_ *domain.User, err error) {
	ctx, end := database.TraceCommand(ctx, usersCollection, "findOne")
	defer func() { endIgnoringNotFound(end, err) }()

	var u domain.User
	if err = r.coll.FindOne(ctx, filter, opts...).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
