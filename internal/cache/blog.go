// Package cache holds read-through caches in front of the stores.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kodar11/Blog/internal/domain"
)

const (
	// BlogListKey is the Redis key holding the serialized blog list.
	BlogListKey = "blog:list"
	// BlogListGenerationKey is bumped on every invalidation.
	BlogListGenerationKey = "blog:list:gen"
)

// BlogListCache caches the full, newest-first blog list.
//
// Readers take the generation before querying the store and hand it back to
// Set, so a list read across an invalidation is never written.
type BlogListCache interface {
	// Get returns the cached list; ok is false on a miss.
	Get(ctx context.Context) (blogs []domain.Blog, ok bool, err error)
	Generation(ctx context.Context) (int64, error)
	// Set stores blogs only while the generation still equals gen.
	Set(ctx context.Context, gen int64, blogs []domain.Blog) error
	Invalidate(ctx context.Context) error
}

// KEYS[1] generation, KEYS[2] list. ARGV: generation, payload, ttl in ms.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisBlogListCache implements BlogListCache on Redis.
type RedisBlogListCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisBlogListCache creates a Redis-backed blog list cache.
func NewRedisBlogListCache(client redis.Cmdable, ttl time.Duration) *RedisBlogListCache {
	return &RedisBlogListCache{
		client: client,
		ttl:    ttl,
	}
}

// Get reads the cached list.
func (c *RedisBlogListCache) Get(ctx context.Context) ([]domain.Blog, bool, error) {
	data, err := c.client.Get(ctx, BlogListKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get blog list: %w", err)
	}

	var blogs []domain.Blog
	if err := json.Unmarshal(data, &blogs); err != nil {
		return nil, false, fmt.Errorf("unmarshal blog list: %w", err)
	}
	if blogs == nil {
		blogs = []domain.Blog{}
	}
	return blogs, true, nil
}

// Generation returns the current list generation; an absent key is 0.
func (c *RedisBlogListCache) Generation(ctx context.Context) (int64, error) {
	raw, err := c.client.Get(ctx, BlogListGenerationKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get blog list generation: %w", err)
	}

	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse blog list generation %q: %w", raw, err)
	}
	return gen, nil
}

// Set stores the list with the configured TTL, unless an invalidation has
// happened since gen was read.
func (c *RedisBlogListCache) Set(ctx context.Context, gen int64, blogs []domain.Blog) error {
	if blogs == nil {
		blogs = []domain.Blog{}
	}
	data, err := json.Marshal(blogs)
	if err != nil {
		return fmt.Errorf("marshal blog list: %w", err)
	}

	keys := []string{BlogListGenerationKey, BlogListKey}
	err = setIfGeneration.Run(ctx, c.client, keys, strconv.FormatInt(gen, 10), data, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set blog list: %w", err)
	}
	return nil
}

// Invalidate bumps the generation and drops the cached list.
func (c *RedisBlogListCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, BlogListGenerationKey)
		pipe.Del(ctx, BlogListKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate blog list: %w", err)
	}
	return nil
}

// NopBlogListCache never hits. Used when Redis is disabled.
type NopBlogListCache struct{}

func (NopBlogListCache) Get(context.Context) ([]domain.Blog, bool, error) { return nil, false, nil }
func (NopBlogListCache) Generation(context.Context) (int64, error)        { return 0, nil }
func (NopBlogListCache) Set(context.Context, int64, []domain.Blog) error  { return nil }
func (NopBlogListCache) Invalidate(context.Context) error                 { return nil }
