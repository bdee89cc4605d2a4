package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kodar11/Blog/internal/cache"
	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/internal/event"
	"github.com/Kodar11/Blog/internal/repository"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
	"github.com/Kodar11/Blog/pkg/pagination"
)

const (
	msgBlogAuthorRequired = "User is not Logged in"
	msgBlogExists         = "Blog already exists"
	msgBlogCreateFailed   = "Something went wrong while creating the blog"
)

// BlogService implements blog creation and listing.
type BlogService struct {
	blogs    repository.BlogRepository
	cache    cache.BlogListCache
	producer *event.Producer
	logger   *slog.Logger
}

// NewBlogService creates a new blog service. A nil cache disables caching.
func NewBlogService(
	blogs repository.BlogRepository,
	listCache cache.BlogListCache,
	producer *event.Producer,
	logger *slog.Logger,
) *BlogService {
	if listCache == nil {
		listCache = cache.NopBlogListCache{}
	}
	return &BlogService{
		blogs:    blogs,
		cache:    listCache,
		producer: producer,
		logger:   logger,
	}
}

// CreateBlogInput holds the parameters for creating a blog.
type CreateBlogInput struct {
	Title   string
	Content string
}

// Create stores a new blog written by the authenticated user.
func (s *BlogService) Create(ctx context.Context, author *domain.Identity, input CreateBlogInput) (*domain.Blog, error) {
	if author == nil || author.ID == "" {
		return nil, apperrors.InvalidInput(msgBlogAuthorRequired)
	}

	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return nil, apperrors.InvalidInput(msgAllFieldsRequired)
	}

	_, err := s.blogs.GetByTitle(ctx, title)
	switch {
	case err == nil:
		return nil, apperrors.Conflict(msgBlogExists)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, apperrors.Internal(fmt.Errorf("check blog title: %w", err))
	}

	now := time.Now().UTC()
	blog := &domain.Blog{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		AuthorID:  author.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.blogs.Create(ctx, blog); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict(msgBlogExists)
		}
		return nil, apperrors.Internal(fmt.Errorf("create blog: %w", err))
	}

	created, err := s.blogs.GetByID(ctx, blog.ID)
	if err != nil {
		return nil, apperrors.InternalMessage(fmt.Errorf("read back blog %s: %w", blog.ID, err), msgBlogCreateFailed)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate blog list cache", slog.String("error", err.Error()))
	}

	if err := s.producer.PublishBlogCreated(ctx, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish blog.created event",
			slog.String("blog_id", created.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "blog created",
		slog.String("blog_id", created.ID),
		slog.String("author_id", created.AuthorID),
	)

	return created, nil
}

// List returns every blog, newest first. The cache is best effort: a cache
// failure falls through to the store. The generation is read before the
// store so a create landing mid-read keeps the stale list out of the cache.
func (s *BlogService) List(ctx context.Context) ([]domain.Blog, error) {
	blogs, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "blog list cache read failed", slog.String("error", err.Error()))
	}
	if ok {
		return blogs, nil
	}

	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.logger.WarnContext(ctx, "blog list cache generation read failed", slog.String("error", genErr.Error()))
	}

	blogs, err = s.blogs.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("list blogs: %w", err))
	}

	if genErr == nil {
		if err := s.cache.Set(ctx, gen, blogs); err != nil {
			s.logger.WarnContext(ctx, "blog list cache write failed", slog.String("error", err.Error()))
		}
	}
	return blogs, nil
}

// ListPage returns one page of the newest-first blog list.
func (s *BlogService) ListPage(ctx context.Context, params pagination.Params) (pagination.Result[domain.Blog], error) {
	blogs, err := s.List(ctx)
	if err != nil {
		return pagination.Result[domain.Blog]{}, err
	}
	return pagination.Slice(blogs, params), nil
}
