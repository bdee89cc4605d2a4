package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kodar11/Blog/internal/auth"
	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/internal/event"
	"github.com/Kodar11/Blog/internal/repository"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

// User-facing messages.
const (
	msgAllFieldsRequired     = "All fields are required"
	msgUserExists            = "User with email or username already exists"
	msgRegisterFailed        = "Something went wrong while registering the user"
	msgCredentialsRequired   = "Username and password are required"
	msgUserDoesNotExist      = "User does not exist"
	msgInvalidCredentials    = "Invalid user credentials"
	msgTokenGenerationFailed = "Something went wrong while generating refresh and access tokens"
	msgUserNotLoggedIn       = "User not logged in"
	msgUnauthorizedRequest   = "Unauthorized request"
	msgInvalidAccessToken    = "Invalid access token"
	msgAccessTokenExpired    = "Access token expired"
	msgUnknownTokenSubject   = "Invalid Access Token"
	msgInvalidOldPassword    = "Invalid old password"
	msgPasswordsRequired     = "Old and new password are required"
	msgEmailRequired         = "Email is required"
	msgEmailTaken            = "User with this email already exists"
	msgPasswordTooLong       = "Password must be at most 72 bytes"
)

// SessionService implements registration, login, logout and the access token
// check behind the request guard.
type SessionService struct {
	users    repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.JWTManager
	producer *event.Producer
	logger   *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.JWTManager,
	producer *event.Producer,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		producer: producer,
		logger:   logger,
	}
}

// --- Input/Output types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult is returned by a successful login. The refresh token is also
// persisted on the user record.
type LoginResult struct {
	User         *domain.PublicUser `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

// ChangePasswordInput holds the parameters for changing a password.
type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// UpdateAccountInput holds the account fields a user may change.
type UpdateAccountInput struct {
	Email string
}

// --- Session operations ---

// Register creates a new account and returns its sanitized projection.
func (s *SessionService) Register(ctx context.Context, input RegisterInput) (_ *domain.PublicUser, err error) {
	defer func() { observe("register", err) }()

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" || strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.InvalidInput(msgAllFieldsRequired)
	}
	username = domain.NormalizeUsername(username)
	email = domain.NormalizeEmail(email)

	_, err = s.users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return nil, apperrors.Conflict(msgUserExists)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, apperrors.Internal(fmt.Errorf("check existing user: %w", err))
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperrors.InvalidInput(msgPasswordTooLong)
		}
		return nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict(msgUserExists)
		}
		return nil, apperrors.Internal(fmt.Errorf("create user: %w", err))
	}

	created, err := s.users.GetByID(ctx, user.ID, repository.ExcludeSecrets())
	if err != nil {
		return nil, apperrors.InternalMessage(fmt.Errorf("read back user %s: %w", user.ID, err), msgRegisterFailed)
	}
	public := created.Sanitized()

	if err := s.producer.PublishUserRegistered(ctx, public); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", public.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", public.ID),
		slog.String("username", public.Username),
	)

	return public, nil
}

// Login checks the credentials, issues an access/refresh token pair and
// stores the refresh token on the user.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (_ *LoginResult, err error) {
	defer func() { observe("login", err) }()

	if strings.TrimSpace(input.Username) == "" || strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.InvalidInput(msgCredentialsRequired)
	}

	user, err := s.users.GetByUsername(ctx, domain.NormalizeUsername(input.Username))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Missing(msgUserDoesNotExist)
		}
		return nil, apperrors.Internal(fmt.Errorf("get user by username: %w", err))
	}

	ok, err := s.hasher.Verify(ctx, input.Password, user.PasswordHash)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !ok {
		s.logger.InfoContext(ctx, "login rejected", slog.String("user_id", user.ID))
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	accessToken, refreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, apperrors.InternalMessage(err, msgTokenGenerationFailed)
	}

	loggedIn, err := s.users.GetByID(ctx, user.ID, repository.ExcludeSecrets())
	if err != nil {
		return nil, apperrors.InternalMessage(fmt.Errorf("read back user %s: %w", user.ID, err), msgTokenGenerationFailed)
	}
	public := loggedIn.Sanitized()

	if err := s.producer.PublishUserLoggedIn(ctx, public); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_in event",
			slog.String("user_id", public.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", public.ID))

	return &LoginResult{
		User:         public,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// issueTokens signs both tokens and persists the refresh token. Only the
// refresh token field changes, so validation is skipped.
func (s *SessionService) issueTokens(ctx context.Context, user *domain.User) (string, string, error) {
	accessToken, err := s.tokens.GenerateAccessToken(*user.Identity())
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return "", "", err
	}

	_, err = s.users.UpdateByID(ctx, user.ID,
		repository.UserUpdate{RefreshToken: &refreshToken},
		repository.UpdateOptions{SkipValidation: true},
	)
	if err != nil {
		return "", "", fmt.Errorf("persist refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

// Logout removes the stored refresh token. Calling it when the token is
// already gone succeeds.
func (s *SessionService) Logout(ctx context.Context, identity *domain.Identity) (err error) {
	defer func() { observe("logout", err) }()

	if identity == nil || identity.ID == "" {
		return apperrors.InvalidInput(msgUserNotLoggedIn)
	}

	if err := s.users.UnsetField(ctx, identity.ID, domain.FieldRefreshToken); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Internal(fmt.Errorf("unset refresh token: %w", err))
		}
		s.logger.DebugContext(ctx, "logout for missing user", slog.String("user_id", identity.ID))
	}

	if err := s.producer.PublishUserLoggedOut(ctx, identity); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_out event",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", identity.ID))
	return nil
}

// Authenticate resolves an access token to the identity of an existing user.
// Every failure is an Unauthorized AppError except store outages.
func (s *SessionService) Authenticate(ctx context.Context, token string) (_ *domain.Identity, err error) {
	defer func() { observe("authenticate", err) }()

	if token == "" {
		return nil, apperrors.Unauthorized(msgUnauthorizedRequest)
	}

	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.Unauthorized(msgAccessTokenExpired)
		}
		return nil, apperrors.Unauthorized(msgInvalidAccessToken)
	}

	user, err := s.users.GetByID(ctx, claims.UserID, repository.ExcludeSecrets())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgUnknownTokenSubject)
		}
		return nil, apperrors.Internal(fmt.Errorf("resolve token subject: %w", err))
	}

	return user.Identity(), nil
}

// --- Account operations ---

// CurrentUser returns the sanitized record of the authenticated user.
func (s *SessionService) CurrentUser(ctx context.Context, identity *domain.Identity) (*domain.PublicUser, error) {
	if identity == nil {
		return nil, apperrors.Unauthorized(msgUnauthorizedRequest)
	}

	user, err := s.users.GetByID(ctx, identity.ID, repository.ExcludeSecrets())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Missing(msgUserDoesNotExist)
		}
		return nil, apperrors.Internal(fmt.Errorf("get current user: %w", err))
	}
	return user.Sanitized(), nil
}

// ChangePassword verifies the old password and stores a hash of the new one.
// The new password is hashed exactly once.
func (s *SessionService) ChangePassword(ctx context.Context, identity *domain.Identity, input ChangePasswordInput) (err error) {
	defer func() { observe("change_password", err) }()

	if identity == nil {
		return apperrors.Unauthorized(msgUnauthorizedRequest)
	}
	if strings.TrimSpace(input.OldPassword) == "" || strings.TrimSpace(input.NewPassword) == "" {
		return apperrors.InvalidInput(msgPasswordsRequired)
	}

	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Missing(msgUserDoesNotExist)
		}
		return apperrors.Internal(fmt.Errorf("get user: %w", err))
	}

	ok, err := s.hasher.Verify(ctx, input.OldPassword, user.PasswordHash)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !ok {
		return apperrors.InvalidInput(msgInvalidOldPassword)
	}

	hash, err := s.hasher.Hash(ctx, input.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return apperrors.InvalidInput(msgPasswordTooLong)
		}
		return apperrors.Internal(err)
	}

	if _, err := s.users.UpdateByID(ctx, user.ID,
		repository.UserUpdate{PasswordHash: &hash},
		repository.UpdateOptions{SkipValidation: true},
	); err != nil {
		return apperrors.Internal(fmt.Errorf("update password: %w", err))
	}

	if err := s.producer.PublishUserPasswordChanged(ctx, identity); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", identity.ID))
	return nil
}

// UpdateAccount changes the account email after a uniqueness check.
func (s *SessionService) UpdateAccount(ctx context.Context, identity *domain.Identity, input UpdateAccountInput) (*domain.PublicUser, error) {
	if identity == nil {
		return nil, apperrors.Unauthorized(msgUnauthorizedRequest)
	}

	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.InvalidInput(msgEmailRequired)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != identity.ID:
		return nil, apperrors.Conflict(msgEmailTaken)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return nil, apperrors.Internal(fmt.Errorf("check email: %w", err))
	}

	updated, err := s.users.UpdateByID(ctx, identity.ID,
		repository.UserUpdate{Email: &email},
		repository.UpdateOptions{},
	)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAlreadyExists):
			return nil, apperrors.Conflict(msgEmailTaken)
		case errors.Is(err, apperrors.ErrInvalidInput):
			return nil, apperrors.InvalidInput("Invalid email address")
		case errors.Is(err, apperrors.ErrNotFound):
			return nil, apperrors.Missing(msgUserDoesNotExist)
		}
		return nil, apperrors.Internal(fmt.Errorf("update account: %w", err))
	}
	public := updated.Sanitized()

	if err := s.producer.PublishUserUpdated(ctx, public); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", public.ID),
			slog.String("error", err.Error()),
		)
	}

	return public, nil
}

// isClientError reports whether err is an AppError in the 4xx range.
func isClientError(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError
}
