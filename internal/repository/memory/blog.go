package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Kodar11/Blog/internal/domain"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

// BlogRepository implements repository.BlogRepository in memory.
type BlogRepository struct {
	mu    sync.RWMutex
	blogs map[string]domain.Blog
}

// NewBlogRepository creates an empty in-memory blog repository.
func NewBlogRepository() *BlogRepository {
	return &BlogRepository{blogs: make(map[string]domain.Blog)}
}

// Create inserts blog. Titles are unique ignoring case.
func (r *BlogRepository) Create(_ context.Context, blog *domain.Blog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.TitleKey(blog.Title)
	for _, b := range r.blogs {
		if b.TitleKey == key {
			return apperrors.AlreadyExists("blog", "title", blog.Title)
		}
	}

	stored := *blog
	stored.TitleKey = key
	r.blogs[blog.ID] = stored
	return nil
}

// GetByID retrieves a blog by ID.
func (r *BlogRepository) GetByID(_ context.Context, id string) (*domain.Blog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blogs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &b, nil
}

// GetByTitle retrieves a blog by title, ignoring case.
func (r *BlogRepository) GetByTitle(_ context.Context, title string) (*domain.Blog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := domain.TitleKey(title)
	for _, b := range r.blogs {
		if b.TitleKey == key {
			return &b, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// List returns every blog, newest first.
func (r *BlogRepository) List(_ context.Context) ([]domain.Blog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blogs := make([]domain.Blog, 0, len(r.blogs))
	for _, b := range r.blogs {
		blogs = append(blogs, b)
	}
	sort.Slice(blogs, func(i, j int) bool {
		if blogs[i].CreatedAt.Equal(blogs[j].CreatedAt) {
			return blogs[i].ID > blogs[j].ID
		}
		return blogs[i].CreatedAt.After(blogs[j].CreatedAt)
	})
	return blogs, nil
}
