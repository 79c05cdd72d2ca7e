package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/thread"
)

type CreateCommentRequest struct {
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	AuthorName  string     `json:"author_name" validate:"required,max=100"`
	AuthorEmail string     `json:"author_email" validate:"required,email,max=255"`
	Content     string     `json:"content" validate:"required,max=5000"`
}

type AdminReplyRequest struct {
	ParentID uuid.UUID `json:"parent_id" validate:"required"`
	Content  string    `json:"content" validate:"required,max=5000"`
}

// ModerateRequest is the optional body of approve and reject.
type ModerateRequest struct {
	ExpectedVersion *int `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// CommentResponse is the public shape of a comment. The author email is never
// exposed publicly.
type CommentResponse struct {
	ID         uuid.UUID         `json:"id"`
	BlogID     uuid.UUID         `json:"blog_id"`
	ParentID   *uuid.UUID        `json:"parent_id,omitempty"`
	AuthorName string            `json:"author_name"`
	Role       thread.AuthorRole `json:"role"`
	Content    string            `json:"content"`
	State      thread.State      `json:"state"`
	Likes      int               `json:"likes"`
	Version    int               `json:"version"`
	CreatedAt  time.Time         `json:"created_at"`
}

// AdminCommentResponse adds moderation details.
type AdminCommentResponse struct {
	CommentResponse
	AuthorEmail string `json:"author_email"`
	IsApproved  bool   `json:"is_approved"`
	IsRejected  bool   `json:"is_rejected"`
}

type CreateCommentResponse struct {
	Comment    CommentResponse    `json:"comment"`
	ReplyingTo *thread.ReplyingTo `json:"replying_to,omitempty"`
}

type ThreadResponse struct {
	BlogID   uuid.UUID             `json:"blog_id"`
	Total    int                   `json:"total"`
	Comments []thread.RenderedNode `json:"comments"`
	LikedIDs []uuid.UUID           `json:"liked_ids"`
}

// RawThreadResponse carries the assembled tree for moderators.
type RawThreadResponse struct {
	BlogID uuid.UUID      `json:"blog_id"`
	Total  int            `json:"total"`
	Nodes  []*thread.Node `json:"nodes"`
}

type LikeResponse struct {
	IsLiked   bool `json:"is_liked"`
	LikeCount int  `json:"like_count"`
}

type DeleteCommentResponse struct {
	Removed int `json:"removed"`
}

type ExportResponse struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

func ToCommentResponse(c *domain.Comment, cls thread.Classifier) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		BlogID:     c.BlogID,
		ParentID:   c.ParentID,
		AuthorName: c.AuthorName,
		Role:       cls.Role(c.AuthorEmail),
		Content:    c.Content,
		State:      thread.StateOf(c),
		Likes:      c.Likes,
		Version:    c.Version,
		CreatedAt:  c.CreatedAt,
	}
}

func ToAdminCommentResponse(c *domain.Comment, cls thread.Classifier) AdminCommentResponse {
	return AdminCommentResponse{
		CommentResponse: ToCommentResponse(c, cls),
		AuthorEmail:     c.AuthorEmail,
		IsApproved:      c.IsApproved,
		IsRejected:      c.IsRejected,
	}
}
