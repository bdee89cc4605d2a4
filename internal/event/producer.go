package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Kodar11/Blog/internal/domain"
	pkgkafka "github.com/Kodar11/Blog/pkg/kafka"
	"github.com/Kodar11/Blog/pkg/logger"
)

// Aggregate type constants.
const (
	AggregateTypeUser = "user"
	AggregateTypeBlog = "blog"
)

// SourceBlogAPI identifies events originating from this service.
const SourceBlogAPI = "blog-api"

// Kafka topics for domain events.
var (
	TopicUserRegistered      = pkgkafka.Topic(AggregateTypeUser, "registered")
	TopicUserLoggedIn        = pkgkafka.Topic(AggregateTypeUser, "logged_in")
	TopicUserLoggedOut       = pkgkafka.Topic(AggregateTypeUser, "logged_out")
	TopicUserUpdated         = pkgkafka.Topic(AggregateTypeUser, "updated")
	TopicUserPasswordChanged = pkgkafka.Topic(AggregateTypeUser, "password_changed")
	TopicBlogCreated         = pkgkafka.Topic(AggregateTypeBlog, "created")
)

// UserData is the payload of every user event. It never carries the password
// hash or refresh token.
type UserData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// BlogCreatedData is the payload for a blog.created event.
type BlogCreatedData struct {
	ID       string `json:"id"`
	Title    string `json:"blog_title"`
	AuthorID string `json:"author_id"`
}

// Producer publishes domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer. A nil publisher discards every
// event, which is how the service runs with Kafka disabled.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	if publisher == nil {
		publisher = discard{}
	}
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.PublicUser) error {
	return p.publishUser(ctx, TopicUserRegistered, user.ID, user.Username, user.Email)
}

// PublishUserLoggedIn publishes a user.logged_in event.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, user *domain.PublicUser) error {
	return p.publishUser(ctx, TopicUserLoggedIn, user.ID, user.Username, user.Email)
}

// PublishUserLoggedOut publishes a user.logged_out event.
func (p *Producer) PublishUserLoggedOut(ctx context.Context, id *domain.Identity) error {
	return p.publishUser(ctx, TopicUserLoggedOut, id.ID, id.Username, id.Email)
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.PublicUser) error {
	return p.publishUser(ctx, TopicUserUpdated, user.ID, user.Username, user.Email)
}

// PublishUserPasswordChanged publishes a user.password_changed event.
func (p *Producer) PublishUserPasswordChanged(ctx context.Context, id *domain.Identity) error {
	return p.publishUser(ctx, TopicUserPasswordChanged, id.ID, id.Username, id.Email)
}

// PublishBlogCreated publishes a blog.created event.
func (p *Producer) PublishBlogCreated(ctx context.Context, blog *domain.Blog) error {
	data := BlogCreatedData{
		ID:       blog.ID,
		Title:    blog.Title,
		AuthorID: blog.AuthorID,
	}
	if err := p.publish(ctx, TopicBlogCreated, blog.ID, AggregateTypeBlog, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published blog.created event",
		slog.String("blog_id", blog.ID),
		slog.String("author_id", blog.AuthorID),
	)
	return nil
}

func (p *Producer) publishUser(ctx context.Context, topic, id, username, email string) error {
	data := UserData{ID: id, Username: username, Email: email}
	if err := p.publish(ctx, topic, id, AggregateTypeUser, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published user event",
		slog.String("topic", topic),
		slog.String("user_id", id),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceBlogAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

type discard struct{}

func (discard) Publish(context.Context, string, *pkgkafka.Event) error { return nil }
