package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) WriteMessages(context.Context, ...kafka.Message) error {
	return errors.New("broker unavailable")
}

func TestActivityService_PersistsAndPublishes(t *testing.T) {
	db := setupTestDB(t)
	writer := &recordingWriter{}
	svc := NewActivityService(repository.NewActivityRepository(db), nil)
	svc.SetPublisher(writer, "comment.activity")
	ctx := context.Background()
	ref := uuid.New()

	require.NoError(t, svc.LogLikeActivity(ctx, "Comment by Reader liked: hello", ref))
	require.NoError(t, svc.LogModeration(ctx, false, "Comment by Reader rejected: hello", ref))

	list, total, err := svc.List(ctx, false, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	require.Equal(t, 2, writer.count())
	var event ActivityEvent
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &event))
	assert.Equal(t, domain.ActivityCommentLiked, event.Type)
	assert.Equal(t, ref, event.RefID)
	assert.Equal(t, []byte(ref.String()), writer.msgs[0].Key)

	require.NoError(t, svc.MarkAsRead(ctx, list[0].ID))
	unread, err := svc.CountUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestActivityService_PublishFailureDoesNotFail(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(repository.NewActivityRepository(db), nil)
	svc.SetPublisher(failingWriter{}, "comment.activity")

	require.NoError(t, svc.LogDeletion(context.Background(), "gone", uuid.New()))

	unread, err := svc.CountUnread(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestActivityService_TruncatesLongTitles(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(repository.NewActivityRepository(db), nil)

	require.NoError(t, svc.LogLikeActivity(context.Background(), strings.Repeat("x", 400), uuid.New()))

	list, _, err := svc.List(context.Background(), false, 1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, []rune(list[0].Title), 255)
	assert.True(t, strings.HasSuffix(list[0].Title, "..."))
}

func TestActivityService_Prune(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewActivityRepository(db)
	svc := NewActivityService(repo, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Activity{Type: domain.ActivityCommentLiked, Title: "old", RefID: uuid.New(), CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}))
	require.NoError(t, svc.LogLikeActivity(ctx, "new", uuid.New()))

	n, err := svc.Prune(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
