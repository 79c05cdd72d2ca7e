package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/repository"
	"github.com/softiel/backend/internal/thread"
)

// CacheInvalidator drops the cached comment list of a blog.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, blogID uuid.UUID)
}

// SessionGateway lets a thread.Session write through the same paths as the
// HTTP API: likes go through the per-viewer dedup table and every mutation
// drops the blog's cached comment list.
type SessionGateway struct {
	comments  *repository.CommentRepository
	likes     *repository.CommentLikeRepository
	cache     CacheInvalidator
	viewerKey string
}

var _ thread.Gateway = (*SessionGateway)(nil)

// NewSessionGateway builds a gateway acting as viewerKey. cache may be nil.
func NewSessionGateway(comments *repository.CommentRepository, likes *repository.CommentLikeRepository, cache CacheInvalidator, viewerKey string) *SessionGateway {
	return &SessionGateway{comments: comments, likes: likes, cache: cache, viewerKey: viewerKey}
}

func (g *SessionGateway) invalidate(ctx context.Context, blogID uuid.UUID) {
	if g.cache != nil {
		g.cache.Invalidate(ctx, blogID)
	}
}

// invalidateFor drops the cache of the blog owning comment id.
func (g *SessionGateway) invalidateFor(ctx context.Context, id uuid.UUID) {
	if g.cache == nil {
		return
	}
	c, err := g.comments.FindByID(ctx, id)
	if err != nil {
		return
	}
	g.cache.Invalidate(ctx, c.BlogID)
}

func (g *SessionGateway) ListComments(ctx context.Context, blogID uuid.UUID) ([]domain.Comment, error) {
	return g.comments.ListComments(ctx, blogID)
}

func (g *SessionGateway) CreateComment(ctx context.Context, in thread.NewComment) (*domain.Comment, error) {
	c, err := g.comments.CreateComment(ctx, in)
	if err != nil {
		return nil, err
	}
	g.invalidate(ctx, c.BlogID)
	return c, nil
}

func (g *SessionGateway) SetApproval(ctx context.Context, id uuid.UUID, approved bool) error {
	if err := g.comments.SetApproval(ctx, id, approved); err != nil {
		return err
	}
	g.invalidateFor(ctx, id)
	return nil
}

// IncrementLikes records or removes this viewer's like. A repeated like is a
// no-op that returns the stored count.
func (g *SessionGateway) IncrementLikes(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var count int
	var err error
	switch {
	case delta > 0:
		count, err = g.likes.Like(ctx, id, g.viewerKey)
		if errors.Is(err, thread.ErrAlreadyLiked) {
			c, ferr := g.comments.FindByID(ctx, id)
			if ferr != nil {
				return 0, ferr
			}
			return c.Likes, nil
		}
	case delta < 0:
		count, _, err = g.likes.Unlike(ctx, id, g.viewerKey)
	default:
		c, ferr := g.comments.FindByID(ctx, id)
		if ferr != nil {
			return 0, ferr
		}
		return c.Likes, nil
	}
	if err != nil {
		return 0, err
	}
	g.invalidateFor(ctx, id)
	return count, nil
}

// DeleteComment removes one comment. The blog is resolved first since the
// row is gone afterwards.
func (g *SessionGateway) DeleteComment(ctx context.Context, id uuid.UUID) error {
	c, err := g.comments.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := g.comments.DeleteComment(ctx, id); err != nil {
		return err
	}
	g.invalidate(ctx, c.BlogID)
	return nil
}
