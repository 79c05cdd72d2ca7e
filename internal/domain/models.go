package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model shared by persisted records
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate assigns an id and timestamps when the caller did not. The
// timestamps are written by the application so sibling order does not depend
// on the precision of the database default.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return nil
}

// ============================================================================
// COMMENT MODELS
// ============================================================================

// Comment is a single persisted comment on a blog post. ParentID is nil for
// top-level comments. Both moderation flags false means pending.
type Comment struct {
	BaseModel
	BlogID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"blog_id"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	AuthorName  string     `gorm:"type:varchar(100);not null" json:"author_name"`
	AuthorEmail string     `gorm:"type:varchar(255);not null" json:"author_email"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	IsApproved  bool       `gorm:"not null;default:false" json:"is_approved"`
	IsRejected  bool       `gorm:"not null;default:false" json:"is_rejected"`
	Likes       int        `gorm:"not null;default:0" json:"likes"`
	Version     int        `gorm:"not null;default:1" json:"version"`
}

func (Comment) TableName() string { return "comments" }

// CommentLike records that a viewer liked a comment. One row per pair.
type CommentLike struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CommentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_likes_viewer" json:"comment_id"`
	ViewerKey string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_comment_likes_viewer" json:"viewer_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CommentLike) TableName() string { return "comment_likes" }

func (l *CommentLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	l.CreatedAt = l.CreatedAt.UTC()
	return nil
}

// ============================================================================
// ACTIVITY MODELS
// ============================================================================

type ActivityType string

const (
	ActivityCommentLiked    ActivityType = "comment_liked"
	ActivityCommentApproved ActivityType = "comment_approved"
	ActivityCommentRejected ActivityType = "comment_rejected"
	ActivityCommentDeleted  ActivityType = "comment_deleted"
)

// Activity is an entry of the admin dashboard activity feed
type Activity struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Type      ActivityType `gorm:"type:varchar(40);not null;index" json:"type"`
	Title     string       `gorm:"type:varchar(255);not null" json:"title"`
	RefID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"ref_id"`
	IsRead    bool         `gorm:"not null;default:false" json:"is_read"`
	ReadAt    *time.Time   `json:"read_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (Activity) TableName() string { return "activities" }

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return nil
}

// Models lists every table owned by this service, in migration order.
func Models() []interface{} {
	return []interface{}{&Comment{}, &CommentLike{}, &Activity{}}
}
