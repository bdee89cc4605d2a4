package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/internal/repository"
	"github.com/Kodar11/Blog/pkg/database"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

const (
	userColumns       = "id, username, email, password_hash, refresh_token, created_at, updated_at"
	publicUserColumns = "id, username, email, created_at, updated_at"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ctx, end := database.TraceQuery(ctx, "users.create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.RefreshToken,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "username or email", u.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string, opts ...repository.FindOption) (*domain.User, error) {
	if repository.ApplyFindOptions(opts...).ExcludeSecrets {
		query := `SELECT ` + publicUserColumns + ` FROM users WHERE id = $1`
		return r.queryUser(ctx, "users.get_by_id", query, false, id)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.queryUser(ctx, "users.get_by_id", query, true, id)
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.queryUser(ctx, "users.get_by_username", query, true, username)
}

// GetByEmail retrieves a user by exact email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.queryUser(ctx, "users.get_by_email", query, true, email)
}

// FindByUsernameOrEmail returns the first user matching either value.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $2 LIMIT 1`
	return r.queryUser(ctx, "users.find_by_username_or_email", query, true, username, email)
}

// UpdateByID applies the non-nil fields of update in a single statement and
// returns the updated row.
func (r *UserRepository) UpdateByID(ctx context.Context, id string, update repository.UserUpdate, opts repository.UpdateOptions) (*domain.User, error) {
	if !opts.SkipValidation {
		if err := repository.ValidateUpdate(update); err != nil {
			return nil, err
		}
	}
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Email != nil {
		set("email", *update.Email)
	}
	if update.PasswordHash != nil {
		set("password_hash", *update.PasswordHash)
	}
	if update.RefreshToken != nil {
		set("refresh_token", *update.RefreshToken)
	}
	set("updated_at", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	u, err := r.queryUser(ctx, "users.update_by_id", query, true, args...)
	if err != nil {
		if isUniqueViolation(err) && update.Email != nil {
			return nil, apperrors.AlreadyExists("user", "email", *update.Email)
		}
		return nil, err
	}
	return u, nil
}

// UnsetField sets a nullable column back to NULL. Clearing an already-NULL
// column succeeds.
func (r *UserRepository) UnsetField(ctx context.Context, id string, field domain.UserField) (err error) {
	var column string
	switch field {
	case domain.FieldRefreshToken:
		column = "refresh_token"
	default:
		return fmt.Errorf("%w: cannot unset field %q", apperrors.ErrInvalidInput, field)
	}

	query := fmt.Sprintf(`UPDATE users SET %s = NULL, updated_at = $1 WHERE id = $2`, column)

	ctx, end := database.TraceQuery(ctx, "users.unset_field", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("unset user %s: %w", column, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// queryUser runs a query expected to return a single user row.
func (r *UserRepository) queryUser(ctx context.Context, operation, query string, withSecrets bool, args ...any) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, operation, query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	var u domain.User
	row := r.pool.QueryRow(ctx, query, args...)
	if withSecrets {
		err = row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)
	} else {
		err = row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
