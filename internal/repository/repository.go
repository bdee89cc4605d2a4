package repository

import (
	"context"

	"github.com/Kodar11/Blog/internal/domain"
)

// UserUpdate lists the fields to change. Nil fields are left untouched, so a
// password hash is only written when PasswordHash is set.
type UserUpdate struct {
	Email        *string
	PasswordHash *string
	RefreshToken *string
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.PasswordHash == nil && u.RefreshToken == nil
}

// UpdateOptions tunes UpdateByID.
type UpdateOptions struct {
	// SkipValidation writes the fields without re-checking uniqueness
	// constraints. Used when only the refresh token changes.
	SkipValidation bool
}

// FindOptions is the projection applied by a lookup.
type FindOptions struct {
	ExcludeSecrets bool
}

// FindOption configures a lookup.
type FindOption func(*FindOptions)

// ExcludeSecrets drops the password hash and refresh token from the result.
func ExcludeSecrets() FindOption {
	return func(o *FindOptions) { o.ExcludeSecrets = true }
}

// ApplyFindOptions folds opts into a FindOptions value.
func ApplyFindOptions(opts ...FindOption) FindOptions {
	var o FindOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// UserRepository defines the interface for user persistence operations.
// Lookups that find nothing return apperrors.ErrNotFound; unique-key
// collisions return apperrors.ErrAlreadyExists.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string, opts ...FindOption) (*domain.User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by exact email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByUsernameOrEmail returns the first user matching either value.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)

	// UpdateByID applies the non-nil fields of update and returns the
	// stored user.
	UpdateByID(ctx context.Context, id string, update UserUpdate, opts UpdateOptions) (*domain.User, error)

	// UnsetField removes a single field. Unsetting an absent field succeeds.
	UnsetField(ctx context.Context, id string, field domain.UserField) error
}

// BlogRepository defines the interface for blog persistence operations.
type BlogRepository interface {
	// Create inserts a new blog into the store.
	Create(ctx context.Context, blog *domain.Blog) error

	// GetByID retrieves a blog by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Blog, error)

	// GetByTitle retrieves a blog by title, ignoring case.
	GetByTitle(ctx context.Context, title string) (*domain.Blog, error)

	// List returns every blog, newest first.
	List(ctx context.Context) ([]domain.Blog, error)
}
