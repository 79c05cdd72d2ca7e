package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_FeedAndReadMarks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	var created []*domain.Activity
	for i := 0; i < 3; i++ {
		a := &domain.Activity{
			Type:      domain.ActivityCommentLiked,
			Title:     "Comment by Reader liked: hello",
			RefID:     uuid.New(),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(ctx, a))
		created = append(created, a)
	}

	list, total, err := repo.FindRecent(ctx, false, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.Equal(t, created[2].ID, list[0].ID, "newest first")

	require.NoError(t, repo.MarkAsRead(ctx, created[0].ID))
	unread, err := repo.CountUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	read, err := repo.FindByID(ctx, created[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	_, total, err = repo.FindRecent(ctx, true, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	require.NoError(t, repo.MarkAllAsRead(ctx))
	unread, _ = repo.CountUnread(ctx)
	assert.Equal(t, int64(0), unread)

	assert.ErrorIs(t, repo.MarkAsRead(ctx, uuid.New()), thread.ErrNotFound)
}

func TestActivityRepository_DeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	old := &domain.Activity{Type: domain.ActivityCommentLiked, Title: "old", RefID: uuid.New(), CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &domain.Activity{Type: domain.ActivityCommentLiked, Title: "fresh", RefID: uuid.New(), CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))

	n, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindByID(ctx, old.ID)
	assert.ErrorIs(t, err, thread.ErrNotFound)
}
