package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
)

type ActivityResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	RefID     uuid.UUID  `json:"ref_id"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type ActivityListMeta struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	UnreadCount int64 `json:"unread_count"`
}

func ToActivityResponse(a domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:        a.ID,
		Type:      string(a.Type),
		Title:     a.Title,
		RefID:     a.RefID,
		IsRead:    a.IsRead,
		ReadAt:    a.ReadAt,
		CreatedAt: a.CreatedAt,
	}
}
