package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/cache"
	"github.com/softiel/backend/internal/config"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/export"
	"github.com/softiel/backend/internal/observability"
	"github.com/softiel/backend/internal/repository"
	"github.com/softiel/backend/internal/thread"
	"go.uber.org/zap"
)

const sideEffectTimeout = 5 * time.Second

// ErrReservedAuthorEmail is returned when a public caller submits a comment
// under the admin identity.
var ErrReservedAuthorEmail = errors.New("author email is reserved")

// ExportStore uploads generated exports and hands out download links.
type ExportStore interface {
	PutObject(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error
	GetPresignedGetURL(ctx context.Context, objectKey, filename string, expiry time.Duration) (string, error)
}

// CreateCommentInput is a comment submission. ParentID nil posts a top-level
// comment.
type CreateCommentInput struct {
	BlogID      uuid.UUID
	ParentID    *uuid.UUID
	AuthorName  string
	AuthorEmail string
	Content     string
}

// ExportResult carries either a download URL or the workbook itself.
type ExportResult struct {
	Filename string
	URL      string
	Data     []byte
}

type CommentService struct {
	comments   *repository.CommentRepository
	likes      *repository.CommentLikeRepository
	activity   *ActivityService
	cache      *cache.CommentCache
	exports    ExportStore
	metrics    *observability.CommentMetrics
	classifier thread.Classifier
	cfg        config.CommentsConfig
	log        *zap.Logger
}

func NewCommentService(
	comments *repository.CommentRepository,
	likes *repository.CommentLikeRepository,
	activity *ActivityService,
	cfg config.CommentsConfig,
	log *zap.Logger,
) *CommentService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = thread.DefaultPreviewLength
	}
	return &CommentService{
		comments:   comments,
		likes:      likes,
		activity:   activity,
		classifier: thread.NewClassifier(cfg.AdminEmail),
		cfg:        cfg,
		log:        log,
	}
}

func (s *CommentService) SetCache(c *cache.CommentCache) { s.cache = c }

// SetExportStore enables upload of exports. Without one exports are streamed.
func (s *CommentService) SetExportStore(store ExportStore) { s.exports = store }

func (s *CommentService) SetMetrics(m *observability.CommentMetrics) { s.metrics = m }

func (s *CommentService) Classifier() thread.Classifier { return s.classifier }

// ============================================================================
// Reads
// ============================================================================

func (s *CommentService) list(ctx context.Context, blogID uuid.UUID) ([]domain.Comment, error) {
	if cached, ok := s.cache.Get(ctx, blogID); ok {
		s.metrics.ObserveCache(true)
		return cached, nil
	}
	if s.cache != nil {
		s.metrics.ObserveCache(false)
	}
	comments, err := s.comments.ListComments(ctx, blogID)
	if err != nil {
		return nil, thread.Persistence("list comments", err)
	}
	s.cache.Set(ctx, blogID, comments)
	return comments, nil
}

// Tree returns the assembled thread of a blog.
func (s *CommentService) Tree(ctx context.Context, blogID uuid.UUID) ([]*thread.Node, error) {
	comments, err := s.list(ctx, blogID)
	if err != nil {
		return nil, err
	}
	return thread.Assemble(comments, s.classifier), nil
}

// freshTree bypasses the cache; used before mutations that depend on shape.
func (s *CommentService) freshTree(ctx context.Context, blogID uuid.UUID) ([]*thread.Node, error) {
	comments, err := s.comments.ListComments(ctx, blogID)
	if err != nil {
		return nil, thread.Persistence("list comments", err)
	}
	return thread.Assemble(comments, s.classifier), nil
}

// Render returns the rendered thread for the given audience.
func (s *CommentService) Render(ctx context.Context, blogID uuid.UUID, mode thread.ViewMode) ([]thread.RenderedNode, []*thread.Node, error) {
	tree, err := s.Tree(ctx, blogID)
	if err != nil {
		return nil, nil, err
	}
	return thread.Render(tree, mode), tree, nil
}

// LikedIDs returns the ids in tree the viewer has liked.
func (s *CommentService) LikedIDs(ctx context.Context, viewerKey string, tree []*thread.Node) ([]uuid.UUID, error) {
	liked, err := s.likes.LikedBy(ctx, viewerKey, thread.Flatten(tree))
	if err != nil {
		return nil, thread.Persistence("list likes", err)
	}
	return liked, nil
}

// Pending returns the moderation queue across all blogs
func (s *CommentService) Pending(ctx context.Context, page, limit int) ([]domain.Comment, int64, error) {
	comments, total, err := s.comments.ListPending(ctx, page, limit)
	if err != nil {
		return nil, 0, thread.Persistence("list pending", err)
	}
	return comments, total, nil
}

func (s *CommentService) find(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, thread.Persistence("find comment", err)
	}
	return c, nil
}

// ============================================================================
// Submissions
// ============================================================================

// Create submits a comment or a reply. Replies are only accepted on approved
// comments of the same blog. Only admin callers may use the admin identity.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput, asAdmin bool) (*domain.Comment, *thread.ReplyingTo, error) {
	if !asAdmin && s.classifier.IsAdminEmail(in.AuthorEmail) {
		return nil, nil, ErrReservedAuthorEmail
	}

	var replyingTo *thread.ReplyingTo
	if in.ParentID != nil {
		tree, err := s.freshTree(ctx, in.BlogID)
		if err != nil {
			return nil, nil, err
		}
		target := thread.Find(tree, *in.ParentID)
		if target == nil {
			return nil, nil, fmt.Errorf("%w: parent %s", thread.ErrNotFound, *in.ParentID)
		}
		route, err := thread.RouteReply(target, s.cfg.PreviewLength)
		if err != nil {
			return nil, nil, err
		}
		parentID := route.ParentID
		in.ParentID = &parentID
		in.BlogID = route.BlogID
		replyingTo = &route.ReplyingTo
	}

	c, err := s.comments.CreateComment(ctx, thread.NewComment{
		BlogID:      in.BlogID,
		ParentID:    in.ParentID,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		Content:     in.Content,
	})
	if err != nil {
		return nil, nil, thread.Persistence("create comment", err)
	}
	s.cache.Invalidate(ctx, c.BlogID)
	s.metrics.ObserveCreated(s.classifier.Role(c.AuthorEmail).String())
	s.log.Info("comment created",
		zap.String("comment_id", c.ID.String()),
		zap.String("blog_id", c.BlogID.String()),
		zap.Bool("reply", c.ParentID != nil))
	return c, replyingTo, nil
}

// AdminReply posts an official reply under the configured admin identity.
func (s *CommentService) AdminReply(ctx context.Context, blogID, parentID uuid.UUID, content string) (*domain.Comment, *thread.ReplyingTo, error) {
	return s.Create(ctx, CreateCommentInput{
		BlogID:      blogID,
		ParentID:    &parentID,
		AuthorName:  s.cfg.AdminName,
		AuthorEmail: s.classifier.AdminEmail(),
		Content:     content,
	}, true)
}

// ============================================================================
// Moderation
// ============================================================================

// Approve moves a comment to approved. expectedVersion, when set, must match
// the stored version.
func (s *CommentService) Approve(ctx context.Context, id uuid.UUID, expectedVersion *int) (*domain.Comment, error) {
	return s.moderate(ctx, id, thread.ActionApprove, expectedVersion)
}

// Reject moves a comment to rejected.
func (s *CommentService) Reject(ctx context.Context, id uuid.UUID, expectedVersion *int) (*domain.Comment, error) {
	return s.moderate(ctx, id, thread.ActionReject, expectedVersion)
}

func (s *CommentService) moderate(ctx context.Context, id uuid.UUID, action thread.Action, expectedVersion *int) (*domain.Comment, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		s.metrics.ObserveModeration(string(action), "not_found")
		return nil, err
	}
	next, err := thread.Transition(thread.StateOf(c), action)
	if err != nil {
		s.metrics.ObserveModeration(string(action), "invalid")
		return nil, err
	}
	approved := next == thread.StateApproved
	if expectedVersion != nil {
		err = s.comments.SetApprovalAtVersion(ctx, id, approved, *expectedVersion)
	} else {
		err = s.comments.SetApproval(ctx, id, approved)
	}
	if err != nil {
		s.metrics.ObserveModeration(string(action), "error")
		return nil, thread.Persistence("set approval", err)
	}
	s.cache.Invalidate(ctx, c.BlogID)
	s.metrics.ObserveModeration(string(action), "success")

	title := fmt.Sprintf("Comment by %s %sd: %s", c.AuthorName, action, thread.Preview(c.Content, s.cfg.PreviewLength))
	s.detach(ctx, "moderation activity not recorded", id, func(actx context.Context) error {
		if s.activity == nil {
			return nil
		}
		return s.activity.LogModeration(actx, approved, title, id)
	})

	return s.find(ctx, id)
}

// ============================================================================
// Likes
// ============================================================================

// Like adds the viewer's like to an approved comment. A second like by the
// same viewer fails with thread.ErrAlreadyLiked and leaves the count as is.
func (s *CommentService) Like(ctx context.Context, id uuid.UUID, viewerKey string) (int, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := thread.Transition(thread.StateOf(c), thread.ActionLike); err != nil {
		s.metrics.ObserveLike("like", "invalid")
		return 0, err
	}
	count, err := s.likes.Like(ctx, id, viewerKey)
	if errors.Is(err, thread.ErrAlreadyLiked) {
		s.metrics.ObserveLike("like", "duplicate")
		return c.Likes, err
	}
	if err != nil {
		s.metrics.ObserveLike("like", "error")
		return 0, thread.Persistence("increment likes", err)
	}
	s.cache.Invalidate(ctx, c.BlogID)
	s.metrics.ObserveLike("like", "success")

	title := thread.LikeActivityTitle(&thread.Node{Comment: *c})
	s.detach(ctx, "like activity not recorded", id, func(actx context.Context) error {
		if s.activity == nil {
			return nil
		}
		return s.activity.LogLikeActivity(actx, title, id)
	})
	return count, nil
}

// Unlike removes the viewer's like. Unliking a comment the viewer never liked
// returns the current count.
func (s *CommentService) Unlike(ctx context.Context, id uuid.UUID, viewerKey string) (int, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := thread.Transition(thread.StateOf(c), thread.ActionUnlike); err != nil {
		s.metrics.ObserveLike("unlike", "invalid")
		return 0, err
	}
	count, removed, err := s.likes.Unlike(ctx, id, viewerKey)
	if err != nil {
		s.metrics.ObserveLike("unlike", "error")
		return 0, thread.Persistence("decrement likes", err)
	}
	if removed {
		s.cache.Invalidate(ctx, c.BlogID)
		s.metrics.ObserveLike("unlike", "success")
	} else {
		s.metrics.ObserveLike("unlike", "noop")
	}
	return count, nil
}

// ============================================================================
// Deletion
// ============================================================================

// Delete removes an approved comment with all of its descendants and returns
// how many comments were removed.
func (s *CommentService) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := thread.Transition(thread.StateOf(c), thread.ActionDelete); err != nil {
		return 0, err
	}
	tree, err := s.freshTree(ctx, c.BlogID)
	if err != nil {
		return 0, err
	}
	ids := thread.Subtree(tree, id)
	if len(ids) == 0 {
		ids = []uuid.UUID{id}
	}
	if err := s.comments.DeleteComments(ctx, ids); err != nil {
		return 0, thread.Persistence("delete comments", err)
	}
	s.cache.Invalidate(ctx, c.BlogID)
	s.metrics.ObserveDeleted(len(ids))
	s.log.Info("comment deleted",
		zap.String("comment_id", id.String()),
		zap.Int("removed", len(ids)))

	title := fmt.Sprintf("Comment by %s deleted: %s", c.AuthorName, thread.Preview(c.Content, s.cfg.PreviewLength))
	s.detach(ctx, "delete activity not recorded", id, func(actx context.Context) error {
		if s.activity == nil {
			return nil
		}
		return s.activity.LogDeletion(actx, title, id)
	})
	return len(ids), nil
}

// detach runs fn after the request has been answered. Failures are logged.
func (s *CommentService) detach(ctx context.Context, msg string, id uuid.UUID, fn func(context.Context) error) {
	go func() {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if err := fn(actx); err != nil {
			s.log.Warn(msg, zap.String("comment_id", id.String()), zap.Error(err))
		}
	}()
}

// ============================================================================
// Export
// ============================================================================

// Export writes the moderator view of a blog's thread to a workbook. With an
// export store configured the file is uploaded and a presigned link returned,
// otherwise the bytes are returned to be streamed.
func (s *CommentService) Export(ctx context.Context, blogID uuid.UUID) (*ExportResult, error) {
	tree, err := s.freshTree(ctx, blogID)
	if err != nil {
		return nil, err
	}
	data, err := export.Bytes(tree)
	if err != nil {
		return nil, fmt.Errorf("build export: %w", err)
	}
	now := time.Now().UTC()
	filename := fmt.Sprintf("comments-%s-%s.xlsx", blogID, now.Format("20060102-150405"))
	result := &ExportResult{Filename: filename}

	if s.exports == nil {
		result.Data = data
		return result, nil
	}

	key := fmt.Sprintf("exports/comments/%s/%s", blogID, filename)
	if err := s.exports.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), export.ContentType); err != nil {
		return nil, thread.Persistence("upload export", err)
	}
	url, err := s.exports.GetPresignedGetURL(ctx, key, filename, s.cfg.ExportURLExpiry)
	if err != nil {
		return nil, thread.Persistence("presign export", err)
	}
	result.URL = url
	return result, nil
}
