// Package mongo implements the repository interfaces on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Kodar11/Blog/pkg/database"
	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

const (
	usersCollection = "users"
	blogsCollection = "blogs"
)

// EnsureIndexes creates the unique and lookup indexes both collections rely
// on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) (err error) {
	ctx, end := database.TraceCommand(ctx, usersCollection, "createIndexes")
	defer func() { end(err) }()

	_, err = db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = db.Collection(blogsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "blog_title_key", Value: 1}}, Options: options.Index().SetUnique(true).SetName("blog_title_key_unique")},
		{Keys: bson.D{{Key: "author_id", Value: 1}}, Options: options.Index().SetName("author_id")},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_at_desc")},
	})
	if err != nil {
		return fmt.Errorf("create blog indexes: %w", err)
	}
	return nil
}

// endIgnoringNotFound closes a span without marking a miss as a failure.
func endIgnoringNotFound(end func(error), err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		end(nil)
		return
	}
	end(err)
}
