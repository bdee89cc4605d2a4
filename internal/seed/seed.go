// Package seed populates a running blog API with demo accounts and posts
// through its public HTTP endpoints.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "demo-password-123"

// Account is a demo user and the posts it writes.
type Account struct {
	Username string
	Email    string
	Posts    []Post
}

// Post is a demo blog post.
type Post struct {
	Title   string
	Content string
}

// DefaultAccounts is the demo data set.
var DefaultAccounts = []Account{
	{
		Username: "alice",
		Email:    "alice@blog.test",
		Posts: []Post{
			{"Getting started with Go", "Install the toolchain, write main.go, and run it."},
			{"Context cancellation in practice", "Pass ctx down every blocking call and respect Done."},
		},
	},
	{
		Username: "bob",
		Email:    "bob@blog.test",
		Posts: []Post{
			{"Notes on bcrypt cost", "Cost 10 is a sensible default for interactive logins."},
		},
	},
	{
		Username: "carol",
		Email:    "carol@blog.test",
		Posts: []Post{
			{"Why I cache list endpoints", "A short TTL and invalidation on write go a long way."},
			{"JWT cookies and bearer headers", "Accept both and let the cookie win."},
		},
	},
}

// Result counts what a seed run did.
type Result struct {
	UsersCreated int
	UsersExisted int
	BlogsCreated int
	BlogsExisted int
}

// Seeder talks to a blog API at BaseURL.
type Seeder struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a seeder. A nil client uses a client with a 10s timeout.
func New(baseURL string, client *http.Client, logger *slog.Logger) *Seeder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Seeder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// envelope is the response shape of every blog API endpoint.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
}

// errConflict marks a 409 response; existing records are not an error when
// re-seeding.
var errConflict = errors.New("already exists")

// Run registers every account, logs it in and writes its posts. Re-running
// against the same backend is safe.
func (s *Seeder) Run(ctx context.Context, accounts []Account) (Result, error) {
	var res Result

	for _, acc := range accounts {
		_, err := s.post(ctx, "/users/register", "", map[string]string{
			"username": acc.Username,
			"email":    acc.Email,
			"password": DemoPassword,
		})
		switch {
		case err == nil:
			res.UsersCreated++
			s.logger.InfoContext(ctx, "user registered", slog.String("username", acc.Username))
		case errors.Is(err, errConflict):
			res.UsersExisted++
			s.logger.InfoContext(ctx, "user exists, continuing", slog.String("username", acc.Username))
		default:
			return res, fmt.Errorf("register %s: %w", acc.Username, err)
		}

		token, err := s.login(ctx, acc.Username)
		if err != nil {
			return res, fmt.Errorf("login %s: %w", acc.Username, err)
		}

		for _, p := range acc.Posts {
			_, err := s.post(ctx, "/blog/write", token, map[string]string{
				"blog_title":   p.Title,
				"blog_content": p.Content,
			})
			switch {
			case err == nil:
				res.BlogsCreated++
				s.logger.InfoContext(ctx, "blog written",
					slog.String("username", acc.Username),
					slog.String("title", p.Title),
				)
			case errors.Is(err, errConflict):
				res.BlogsExisted++
			default:
				return res, fmt.Errorf("write blog %q: %w", p.Title, err)
			}
		}
	}

	return res, nil
}

func (s *Seeder) login(ctx context.Context, username string) (string, error) {
	data, err := s.post(ctx, "/users/login", "", map[string]string{
		"username": username,
		"password": DemoPassword,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("login response carried no access token")
	}
	return out.AccessToken, nil
}

// post sends a JSON body and returns the envelope's data on a 2xx response.
func (s *Seeder) post(ctx context.Context, path, token string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("%w: %s", errConflict, env.Message)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, env.Message)
	}
	return env.Data, nil
}
