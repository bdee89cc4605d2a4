package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/pkg/database"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

// BlogRepository implements repository.BlogRepository on the blogs
// collection.
type BlogRepository struct {
	coll *mongo.Collection
}

// NewBlogRepository creates a new MongoDB-backed blog repository.
func NewBlogRepository(db *mongo.Database) *BlogRepository {
	return &BlogRepository{coll: db.Collection(blogsCollection)}
}

// Create inserts a new blog. The title key is derived from the title.
func (r *BlogRepository) Create(ctx context.Context, b *domain.Blog) (err error) {
	ctx, end := database.TraceCommand(ctx, blogsCollection, "insertOne")
	defer func() { end(err) }()

	b.TitleKey = domain.TitleKey(b.Title)
	if _, err = r.coll.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("blog", "title", b.Title)
		}
		return fmt.Errorf("insert blog: %w", err)
	}
	return nil
}

// GetByID retrieves a blog by _id.
func (r *BlogRepository) GetByID(ctx context.Context, id string) (*domain.Blog, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetByTitle retrieves a blog by title, ignoring case.
func (r *BlogRepository) GetByTitle(ctx context.Context, title string) (*domain.Blog, error) {
	return r.findOne(ctx, bson.D{{Key: "blog_title_key", Value: domain.TitleKey(title)}})
}

// List returns every blog, newest first.
func (r *BlogRepository) List(ctx context.Context) (_ []domain.Blog, err error) {
	ctx, end := database.TraceCommand(ctx, blogsCollection, "find")
	defer func() { end(err) }()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}

	blogs := []domain.Blog{}
	if err = cur.All(ctx, &blogs); err != nil {
		return nil, fmt.Errorf("decode blogs: %w", err)
	}
	return blogs, nil
}

func (r *BlogRepository) findOne(ctx context.Context, filter bson.D) (_ *domain.Blog, err error) {
	ctx, end := database.TraceCommand(ctx, blogsCollection, "findOne")
	defer func() { endIgnoringNotFound(end, err) }()

	var b domain.Blog
	if err = r.coll.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find blog: %w", err)
	}
	return &b, nil
}
