package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/thread"
	"gorm.io/gorm"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create creates a new activity
func (r *ActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// FindByID finds an activity by ID
func (r *ActivityRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Activity, error) {
	var activity domain.Activity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error
	if err == gorm.ErrRecordNotFound {
		return nil, thread.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// FindRecent lists activities newest first with pagination
func (r *ActivityRepository) FindRecent(ctx context.Context, unreadOnly bool, page, limit int) ([]domain.Activity, int64, error) {
	var activities []domain.Activity
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Activity{})
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&activities).Error
	if err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}

// CountUnread counts unread activities
func (r *ActivityRepository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Activity{}).
		Where("is_read = ?", false).
		Count(&count).Error
	return count, err
}

// MarkAsRead marks an activity as read
func (r *ActivityRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&domain.Activity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return thread.ErrNotFound
	}
	return nil
}

// MarkAllAsRead marks every unread activity as read
func (r *ActivityRepository) MarkAllAsRead(ctx context.Context) error {
	return r.db.WithContext(ctx).Model(&domain.Activity{}).
		Where("is_read = ?", false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error
}

// DeleteOlderThan removes activities created before cutoff
func (r *ActivityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&domain.Activity{})
	return result.RowsAffected, result.Error
}
