// Package memory holds in-process repositories for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/internal/repository"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

// UserRepository implements repository.UserRepository in memory. Username
// and email are unique, as in the persistent stores.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

// Create inserts a copy of user.
func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return apperrors.AlreadyExists("user", "id", user.ID)
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return apperrors.AlreadyExists("user", "username", user.Username)
		}
		if u.Email == user.Email {
			return apperrors.AlreadyExists("user", "email", user.Email)
		}
	}

	r.users[user.ID] = cloneUser(*user)
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id string, opts ...repository.FindOption) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return project(u, repository.ApplyFindOptions(opts...)), nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

// GetByEmail retrieves a user by exact email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

// FindByUsernameOrEmail returns a user matching either value.
func (r *UserRepository) FindByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username || u.Email == email })
}

// UpdateByID applies the non-nil fields of update.
func (r *UserRepository) UpdateByID(_ context.Context, id string, update repository.UserUpdate, opts repository.UpdateOptions) (*domain.User, error) {
	if !opts.SkipValidation {
		if err := repository.ValidateUpdate(update); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if update.Email != nil && !opts.SkipValidation {
		for otherID, other := range r.users {
			if otherID != id && other.Email == *update.Email {
				return nil, apperrors.AlreadyExists("user", "email", *update.Email)
			}
		}
	}

	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	if update.RefreshToken != nil {
		token := *update.RefreshToken
		u.RefreshToken = &token
	}
	u.UpdatedAt = time.Now().UTC()

	r.users[id] = u
	return project(u, repository.FindOptions{}), nil
}

// UnsetField clears a single field. Clearing an absent field succeeds.
func (r *UserRepository) UnsetField(_ context.Context, id string, field domain.UserField) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}

	switch field {
	case domain.FieldRefreshToken:
		u.RefreshToken = nil
	default:
		return fmt.Errorf("%w: cannot unset field %q", apperrors.ErrInvalidInput, field)
	}
	u.UpdatedAt = time.Now().UTC()

	r.users[id] = u
	return nil
}

func (r *UserRepository) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return project(u, repository.FindOptions{}), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func project(u domain.User, opts repository.FindOptions) *domain.User {
	out := cloneUser(u)
	if opts.ExcludeSecrets {
		out.PasswordHash = ""
		out.RefreshToken = nil
	}
	return &out
}

func cloneUser(u domain.User) domain.User {
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		u.RefreshToken = &token
	}
	return u
}
