package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/thread"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentLikeRepository keeps one like record per viewer and comment and
// moves the comment's counter together with it.
type CommentLikeRepository struct {
	db *gorm.DB
}

func NewCommentLikeRepository(db *gorm.DB) *CommentLikeRepository {
	return &CommentLikeRepository{db: db}
}

// Like records the like and increments the counter in one transaction. A
// repeated like by the same viewer yields thread.ErrAlreadyLiked.
func (r *CommentLikeRepository) Like(ctx context.Context, commentID uuid.UUID, viewerKey string) (int, error) {
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		like := &domain.CommentLike{CommentID: commentID, ViewerKey: viewerKey}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(like)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return thread.ErrAlreadyLiked
		}
		var err error
		count, err = incrementLikes(tx, commentID, 1)
		return err
	})
	return count, err
}

// Unlike removes the viewer's like. removed is false when there was none, and
// count is then the unchanged stored value.
func (r *CommentLikeRepository) Unlike(ctx context.Context, commentID uuid.UUID, viewerKey string) (count int, removed bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("comment_id = ? AND viewer_key = ?", commentID, viewerKey).Delete(&domain.CommentLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var c domain.Comment
			if err := tx.Select("likes").First(&c, "id = ?", commentID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return thread.ErrNotFound
				}
				return err
			}
			count = c.Likes
			return nil
		}
		removed = true
		var err error
		count, err = incrementLikes(tx, commentID, -1)
		return err
	})
	return count, removed, err
}

func (r *CommentLikeRepository) IsLiked(ctx context.Context, commentID uuid.UUID, viewerKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.CommentLike{}).
		Where("comment_id = ? AND viewer_key = ?", commentID, viewerKey).
		Count(&count).Error
	return count > 0, err
}

// LikedBy returns the ids among commentIDs that the viewer has liked.
func (r *CommentLikeRepository) LikedBy(ctx context.Context, viewerKey string, commentIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(commentIDs) == 0 || viewerKey == "" {
		return []uuid.UUID{}, nil
	}
	var liked []uuid.UUID
	err := r.db.WithContext(ctx).Model(&domain.CommentLike{}).
		Where("viewer_key = ? AND comment_id IN ?", viewerKey, commentIDs).
		Pluck("comment_id", &liked).Error
	return liked, err
}
