// Command seed populates a running blog API with demo accounts and posts.
//
// Run: go run ./cmd/seed   (BLOG_API_URL defaults to http://localhost:8000)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kodar11/Blog/internal/seed"
	pkgconfig "github.com/Kodar11/Blog/pkg/config"
	"github.com/Kodar11/Blog/pkg/logger"
)

type config struct {
	BaseURL  string        `env:"BLOG_API_URL" envDefault:"http://localhost:8000"`
	Timeout  time.Duration `env:"SEED_TIMEOUT" envDefault:"2m"`
	LogLevel string        `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	var cfg config
	if err := pkgconfig.Load(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("blog-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, cfg.Timeout)
	defer cancelTimeout()

	log.Info("seeding blog API", slog.String("url", cfg.BaseURL))
	res, err := seed.New(cfg.BaseURL, nil, log).Run(ctx, seed.DefaultAccounts)
	if err != nil {
		return err
	}

	log.Info("seed complete",
		slog.Int("users_created", res.UsersCreated),
		slog.Int("users_existed", res.UsersExisted),
		slog.Int("blogs_created", res.BlogsCreated),
		slog.Int("blogs_existed", res.BlogsExisted),
	)
	return nil
}
