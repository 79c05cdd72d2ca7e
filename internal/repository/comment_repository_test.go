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
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// a second pooled connection would see an empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(domain.Models()...)
	require.NoError(t, err)

	return db
}

func seedComment(t *testing.T, repo *CommentRepository, blogID uuid.UUID, parentID *uuid.UUID, email string) *domain.Comment {
	c, err := repo.CreateComment(context.Background(), thread.NewComment{
		BlogID:      blogID,
		ParentID:    parentID,
		AuthorName:  "Reader",
		AuthorEmail: email,
		Content:     "Nice write-up",
	})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond) // distinct created_at
	return c
}

// ============================================================================
// Create / list
// ============================================================================

func TestCommentRepository_CreateStartsPending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	c := seedComment(t, repo, uuid.New(), nil, "reader@example.com")

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsApproved)
	assert.False(t, stored.IsRejected)
	assert.Equal(t, 0, stored.Likes)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, thread.StatePending, thread.StateOf(stored))
}

func TestCommentRepository_ListCommentsScopedToBlogOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	blogID := uuid.New()

	first := seedComment(t, repo, blogID, nil, "a@example.com")
	second := seedComment(t, repo, blogID, &first.ID, "b@example.com")
	seedComment(t, repo, uuid.New(), nil, "c@example.com")

	list, err := repo.ListComments(ctx, blogID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	require.NotNil(t, list[1].ParentID)
	assert.Equal(t, first.ID, *list[1].ParentID)

	count, err := repo.CountByBlogID(ctx, blogID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCommentRepository_CreatedAtKeepsSubSecondOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	blogID := uuid.New()

	var want []uuid.UUID
	for i := 0; i < 4; i++ {
		want = append(want, seedComment(t, repo, blogID, nil, "reader@example.com").ID)
	}

	var stamps []time.Time
	require.NoError(t, db.Model(&domain.Comment{}).
		Where("blog_id = ?", blogID).
		Order("created_at ASC").
		Pluck("created_at", &stamps).Error)
	require.Len(t, stamps, 4)
	for i := 1; i < len(stamps); i++ {
		assert.True(t, stamps[i].After(stamps[i-1]), "created_at %d must be later than %d", i, i-1)
	}

	list, err := repo.ListComments(ctx, blogID)
	require.NoError(t, err)
	var got []uuid.UUID
	for _, c := range list {
		got = append(got, c.ID)
	}
	assert.Equal(t, want, got)
}

func TestCommentRepository_FindByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, thread.ErrNotFound)
}

// ============================================================================
// Moderation flags
// ============================================================================

func TestCommentRepository_SetApprovalWritesBothFlags(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	c := seedComment(t, repo, uuid.New(), nil, "reader@example.com")

	require.NoError(t, repo.SetApproval(ctx, c.ID, true))
	stored, _ := repo.FindByID(ctx, c.ID)
	assert.True(t, stored.IsApproved)
	assert.False(t, stored.IsRejected)
	assert.Equal(t, 2, stored.Version)

	require.NoError(t, repo.SetApproval(ctx, c.ID, false))
	stored, _ = repo.FindByID(ctx, c.ID)
	assert.False(t, stored.IsApproved)
	assert.True(t, stored.IsRejected)
	assert.Equal(t, 3, stored.Version)

	assert.ErrorIs(t, repo.SetApproval(ctx, uuid.New(), true), thread.ErrNotFound)
}

func TestCommentRepository_SetApprovalAtVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	c := seedComment(t, repo, uuid.New(), nil, "reader@example.com")

	require.NoError(t, repo.SetApprovalAtVersion(ctx, c.ID, true, 1))

	err := repo.SetApprovalAtVersion(ctx, c.ID, false, 1)
	assert.ErrorIs(t, err, thread.ErrConflict, "stale version must not overwrite")

	stored, _ := repo.FindByID(ctx, c.ID)
	assert.True(t, stored.IsApproved)

	err = repo.SetApprovalAtVersion(ctx, uuid.New(), true, 1)
	assert.ErrorIs(t, err, thread.ErrNotFound)
}

// ============================================================================
// Like counter
// ============================================================================

func TestCommentRepository_IncrementLikesFloorsAtZero(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	c := seedComment(t, repo, uuid.New(), nil, "reader@example.com")

	count, err := repo.IncrementLikes(ctx, c.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.IncrementLikes(ctx, c.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = repo.IncrementLikes(ctx, c.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = repo.IncrementLikes(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, thread.ErrNotFound)
}

// ============================================================================
// Delete / pending queue
// ============================================================================

func TestCommentRepository_DeleteCommentsRemovesLikes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	likes := NewCommentLikeRepository(db)
	ctx := context.Background()
	blogID := uuid.New()

	root := seedComment(t, repo, blogID, nil, "a@example.com")
	child := seedComment(t, repo, blogID, &root.ID, "b@example.com")
	_, err := likes.Like(ctx, child.ID, "viewer-1")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteComments(ctx, []uuid.UUID{child.ID, root.ID}))

	list, err := repo.ListComments(ctx, blogID)
	require.NoError(t, err)
	assert.Empty(t, list)

	var likeRows int64
	db.Model(&domain.CommentLike{}).Count(&likeRows)
	assert.Equal(t, int64(0), likeRows)

	assert.ErrorIs(t, repo.DeleteComment(ctx, root.ID), thread.ErrNotFound)
}

func TestCommentRepository_ListPending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	a := seedComment(t, repo, uuid.New(), nil, "a@example.com")
	b := seedComment(t, repo, uuid.New(), nil, "b@example.com")
	c := seedComment(t, repo, uuid.New(), nil, "c@example.com")
	require.NoError(t, repo.SetApproval(ctx, a.ID, true))
	require.NoError(t, repo.SetApproval(ctx, b.ID, false))

	pending, total, err := repo.ListPending(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.Equal(t, c.ID, pending[0].ID)
}
