package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/pkg/database"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

const blogColumns = "id, title, title_key, content, author_id, created_at, updated_at"

// BlogRepository implements repository.BlogRepository using PostgreSQL.
type BlogRepository struct {
	pool database.DBTX
}

// NewBlogRepository creates a new PostgreSQL-backed blog repository.
func NewBlogRepository(pool database.DBTX) *BlogRepository {
	return &BlogRepository{pool: pool}
}

// Create inserts a new blog. The title key is derived from the title.
func (r *BlogRepository) Create(ctx context.Context, b *domain.Blog) (err error) {
	query := `
		INSERT INTO blogs (id, title, title_key, content, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ctx, end := database.TraceQuery(ctx, "blogs.create", query)
	defer func() { end(err) }()

	b.TitleKey = domain.TitleKey(b.Title)
	_, err = r.pool.Exec(ctx, query,
		b.ID,
		b.Title,
		b.TitleKey,
		b.Content,
		b.AuthorID,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("blog", "title", b.Title)
		}
		return fmt.Errorf("insert blog: %w", err)
	}

	return nil
}

// GetByID retrieves a blog by its ID.
func (r *BlogRepository) GetByID(ctx context.Context, id string) (*domain.Blog, error) {
	query := `SELECT ` + blogColumns + ` FROM blogs WHERE id = $1`
	return r.queryBlog(ctx, "blogs.get_by_id", query, id)
}

// GetByTitle retrieves a blog by title, ignoring case.
func (r *BlogRepository) GetByTitle(ctx context.Context, title string) (*domain.Blog, error) {
	query := `SELECT ` + blogColumns + ` FROM blogs WHERE title_key = $1`
	return r.queryBlog(ctx, "blogs.get_by_title", query, domain.TitleKey(title))
}

// List returns every blog, newest first.
func (r *BlogRepository) List(ctx context.Context) (_ []domain.Blog, err error) {
	query := `SELECT ` + blogColumns + ` FROM blogs ORDER BY created_at DESC, id DESC`

	ctx, end := database.TraceQuery(ctx, "blogs.list", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	defer rows.Close()

	blogs := []domain.Blog{}
	for rows.Next() {
		var b domain.Blog
		if err := rows.Scan(&b.ID, &b.Title, &b.TitleKey, &b.Content, &b.AuthorID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan blog row: %w", err)
		}
		blogs = append(blogs, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blog rows: %w", err)
	}

	return blogs, nil
}

func (r *BlogRepository) queryBlog(ctx context.Context, operation, query string, args ...any) (_ *domain.Blog, err error) {
	ctx, end := database.TraceQuery(ctx, operation, query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	var b domain.Blog
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&b.ID,
		&b.Title,
		&b.TitleKey,
		&b.Content,
		&b.AuthorID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan blog: %w", err)
	}

	return &b, nil
}
