package thread

import (
	"context"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
)

// NewComment is the input of a comment submission.
type NewComment struct {
	BlogID      uuid.UUID
	ParentID    *uuid.UUID
	AuthorName  string
	AuthorEmail string
	Content     string
}

// Gateway is the boundary to the comment store. Every call may block on I/O.
type Gateway interface {
	ListComments(ctx context.Context, blogID uuid.UUID) ([]domain.Comment, error)
	CreateComment(ctx context.Context, in NewComment) (*domain.Comment, error)
	// SetApproval sets one moderation flag and clears the other.
	SetApproval(ctx context.Context, id uuid.UUID, approved bool) error
	// IncrementLikes adds delta and returns the new count, never below zero.
	IncrementLikes(ctx context.Context, id uuid.UUID, delta int) (int, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

// ActivityLogger records like activity. Calls are best-effort.
type ActivityLogger interface {
	LogLikeActivity(ctx context.Context, title string, refID uuid.UUID) error
}
