package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/softiel/backend/internal/domain"
	"go.uber.org/zap"
)

const keyPrefix = "comments:blog:"

// CommentCache holds the flat comment list of each blog. A nil *CommentCache
// is a valid, always-missing cache.
type CommentCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewCommentCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CommentCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentCache{rdb: rdb, ttl: ttl, log: log}
}

// Key returns the redis key of a blog's comment list.
func Key(blogID uuid.UUID) string {
	return keyPrefix + blogID.String()
}

// Get returns the cached list. Errors are logged and reported as a miss.
func (c *CommentCache) Get(ctx context.Context, blogID uuid.UUID) ([]domain.Comment, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, Key(blogID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.Warn("comment cache read failed", zap.String("blog_id", blogID.String()), zap.Error(err))
		return nil, false
	}
	var comments []domain.Comment
	if err := json.Unmarshal(raw, &comments); err != nil {
		c.log.Warn("comment cache entry corrupt", zap.String("blog_id", blogID.String()), zap.Error(err))
		return nil, false
	}
	return comments, true
}

func (c *CommentCache) Set(ctx context.Context, blogID uuid.UUID, comments []domain.Comment) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(comments)
	if err != nil {
		c.log.Warn("comment cache encode failed", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, Key(blogID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("comment cache write failed", zap.String("blog_id", blogID.String()), zap.Error(err))
	}
}

// Invalidate drops a blog's entry after a mutation.
func (c *CommentCache) Invalidate(ctx context.Context, blogID uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, Key(blogID)).Err(); err != nil {
		c.log.Warn("comment cache invalidate failed", zap.String("blog_id", blogID.String()), zap.Error(err))
	}
}
