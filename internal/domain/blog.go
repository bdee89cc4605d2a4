package domain

import (
	"strings"
	"time"
)

// Blog is a post written by a user.
type Blog struct {
	ID       string `json:"_id" bson:"_id"`
	Title    string `json:"blog_title" bson:"blog_title"`
	TitleKey string `json:"-" bson:"blog_title_key"`
	Content  string `json:"blog_content" bson:"blog_content"`
	AuthorID string `json:"author_id" bson:"author_id"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// TitleKey is the case-insensitive uniqueness key for a blog title.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
