package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kodar11/Blog/internal/auth"
	"github.com/Kodar11/Blog/internal/event"
	"github.com/Kodar11/Blog/internal/repository/memory"
	"github.com/Kodar11/Blog/internal/service"
	"github.com/Kodar11/Blog/pkg/health"
	"github.com/Kodar11/Blog/pkg/middleware"
)

// envelope mirrors httputil.Response with a raw data payload.
type envelope struct {
	StatusCode int               `json:"statusCode"`
	Data       json.RawMessage   `json:"data"`
	Message    string            `json:"message"`
	Success    bool              `json:"success"`
	Errors     map[string]string `json:"errors"`
}

type testServer struct {
	handler  http.Handler
	users    *memory.UserRepository
	blogs    *memory.BlogRepository
	sessions *service.SessionService
	tokens   *auth.JWTManager
}

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

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := newTestLogger()
	users := memory.NewUserRepository()
	blogs := memory.NewBlogRepository()
	tokens := newTestJWTManager()
	producer := event.NewProducer(nil, logger)

	sessions := service.NewSessionService(users, auth.NewPasswordHasher(bcrypt.MinCost, 4), tokens, producer, logger)
	blogSvc := service.NewBlogService(blogs, nil, producer, logger)

	router := NewRouter(sessions, blogSvc, health.NewHandler(), logger, RouterConfig{
		ServiceName: "blog-api-test",
		CORS:        middleware.DefaultCORSConfig(),
		Cookies:     CookieConfig{AccessTokenTTL: tokens.AccessExpiry()},
	})

	return &testServer{
		handler:  router,
		users:    users,
		blogs:    blogs,
		sessions: sessions,
		tokens:   tokens,
	}
}

// do sends a request through the router. body is JSON-encoded when not nil.
func (s *testServer) do(t *testing.T, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// registerAndLogin creates an account and returns the access token cookie.
func (s *testServer) registerAndLogin(t *testing.T, username, email, password string) *http.Cookie {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/users/register", RegisterRequest{
		Username: username, Email: email, Password: password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/users/login", LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookie := findCookie(rec, AccessTokenCookie)
	require.NotNil(t, cookie)
	return cookie
}
