package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kodar11/Blog/internal/auth"
	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/internal/event"
	"github.com/Kodar11/Blog/internal/repository"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
	pkgkafka "github.com/Kodar11/Blog/pkg/kafka"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// GetByID passes the folded ExcludeSecrets flag to the mock so expectations
// can tell projected lookups apart.
func (m *mockUserRepository) GetByID(ctx context.Context, id string, opts ...repository.FindOption) (*domain.User, error) {
	args := m.Called(ctx, id, repository.ApplyFindOptions(opts...).ExcludeSecrets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) UpdateByID(ctx context.Context, id string, update repository.UserUpdate, opts repository.UpdateOptions) (*domain.User, error) {
	args := m.Called(ctx, id, update, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) UnsetField(ctx context.Context, id string, field domain.UserField) error {
	args := m.Called(ctx, id, field)
	return args.Error(0)
}

// --- Mock Blog Repository ---

type mockBlogRepository struct {
	mock.Mock
}

func (m *mockBlogRepository) Create(ctx context.Context, blog *domain.Blog) error {
	args := m.Called(ctx, blog)
	return args.Error(0)
}

func (m *mockBlogRepository) GetByID(ctx context.Context, id string) (*domain.Blog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Blog), args.Error(1)
}

func (m *mockBlogRepository) GetByTitle(ctx context.Context, title string) (*domain.Blog, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Blog), args.Error(1)
}

func (m *mockBlogRepository) List(ctx context.Context) ([]domain.Blog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Blog), args.Error(1)
}

// --- Recording publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager(auth.JWTConfig{
		AccessSecret:  "test-access-secret-key-for-testing-only",
		AccessExpiry:  15 * time.Minute,
		RefreshSecret: "test-refresh-secret-key-for-testing-only",
		RefreshExpiry: 7 * 24 * time.Hour,
	})
}

func newTestHasher() *auth.PasswordHasher {
	return auth.NewPasswordHasher(bcrypt.MinCost, 4)
}

func newTestSessionService(users repository.UserRepository) (*SessionService, *recordingPublisher) {
	pub := &recordingPublisher{}
	logger := newTestLogger()
	svc := NewSessionService(users, newTestHasher(), newTestJWTManager(), event.NewProducer(pub, logger), logger)
	return svc, pub
}

func hashForTest(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// requireAppError asserts err is an AppError with the given status and message.
func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, status, appErr.Status, "unexpected status for %v", err)
	if message != "" {
		require.Equal(t, message, appErr.Message)
	}
}
