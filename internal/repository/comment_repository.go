package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/thread"
	"gorm.io/gorm"
)

// CommentRepository is the GORM implementation of thread.Gateway.
type CommentRepository struct {
	db *gorm.DB
}

var _ thread.Gateway = (*CommentRepository)(nil)

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// ListComments returns every comment of a blog, oldest first.
func (r *CommentRepository) ListComments(ctx context.Context, blogID uuid.UUID) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := r.db.WithContext(ctx).
		Where("blog_id = ?", blogID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *CommentRepository) CreateComment(ctx context.Context, in thread.NewComment) (*domain.Comment, error) {
	comment := &domain.Comment{
		BlogID:      in.BlogID,
		ParentID:    in.ParentID,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		Content:     in.Content,
		Version:     1,
	}
	comment.CreatedAt = time.Now().UTC()
	comment.UpdatedAt = comment.CreatedAt
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (r *CommentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, thread.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// SetApproval writes both moderation flags in one statement so they can never
// be observed set together.
func (r *CommentRepository) SetApproval(ctx context.Context, id uuid.UUID, approved bool) error {
	result := r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("id = ?", id).
		Updates(approvalColumns(approved))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return thread.ErrNotFound
	}
	return nil
}

// SetApprovalAtVersion is SetApproval guarded by the version the caller last
// saw. A stale version yields thread.ErrConflict.
func (r *CommentRepository) SetApprovalAtVersion(ctx context.Context, id uuid.UUID, approved bool, version int) error {
	result := r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("id = ? AND version = ?", id, version).
		Updates(approvalColumns(approved))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return thread.ErrConflict
	}
	return nil
}

func approvalColumns(approved bool) map[string]interface{} {
	return map[string]interface{}{
		"is_approved": approved,
		"is_rejected": !approved,
		"version":     gorm.Expr("version + 1"),
	}
}

// IncrementLikes adds delta to the like counter, flooring at zero, and
// returns the stored count.
func (r *CommentRepository) IncrementLikes(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		count, err = incrementLikes(tx, id, delta)
		return err
	})
	return count, err
}

func incrementLikes(tx *gorm.DB, id uuid.UUID, delta int) (int, error) {
	result := tx.Model(&domain.Comment{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("CASE WHEN likes + ? < 0 THEN 0 ELSE likes + ? END", delta, delta))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, thread.ErrNotFound
	}
	var count int
	err := tx.Model(&domain.Comment{}).Where("id = ?", id).Pluck("likes", &count).Error
	return count, err
}

func (r *CommentRepository) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return r.DeleteComments(ctx, []uuid.UUID{id})
}

// DeleteComments removes the given comments and their like records in one
// transaction. It fails with thread.ErrNotFound when none of them exist.
func (r *CommentRepository) DeleteComments(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id IN ?", ids).Delete(&domain.CommentLike{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&domain.Comment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return thread.ErrNotFound
		}
		return nil
	})
}

// ListPending returns comments awaiting moderation across all blogs, newest
// first.
func (r *CommentRepository) ListPending(ctx context.Context, page, limit int) ([]domain.Comment, int64, error) {
	var comments []domain.Comment
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("is_approved = ? AND is_rejected = ?", false, false)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("created_at DESC").Order("id ASC").Offset(offset).Limit(limit).Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (r *CommentRepository) CountByBlogID(ctx context.Context, blogID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Comment{}).Where("blog_id = ?", blogID).Count(&count).Error
	return count, err
}
