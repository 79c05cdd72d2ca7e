package thread

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
	"go.uber.org/zap"
)

const activityTimeout = 5 * time.Second

// Session is a viewer's working copy of one blog's comment thread. It holds
// the viewer's liked set and reconciles after every mutation by re-fetching
// the flat list and reassembling, never by patching nodes in place.
//
// Fetches are numbered; only the result of the most recently issued fetch is
// applied, so a slow response can neither overwrite a fresher tree nor show
// briefly while a newer fetch is still in flight.
type Session struct {
	gateway    Gateway
	activity   ActivityLogger
	classifier Classifier
	blogID     uuid.UUID
	previewLen int
	likes      *LikeTracker
	log        *zap.Logger

	seq     atomic.Uint64
	mu      sync.RWMutex
	applied uint64
	tree    []*Node
}

type SessionOption func(*Session)

func WithActivityLogger(l ActivityLogger) SessionOption {
	return func(s *Session) { s.activity = l }
}

func WithLogger(log *zap.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

func WithPreviewLength(n int) SessionOption {
	return func(s *Session) { s.previewLen = n }
}

// WithLikedComments seeds the liked set, e.g. from viewer storage.
func WithLikedComments(ids ...uuid.UUID) SessionOption {
	return func(s *Session) { s.likes = NewLikeTracker(ids...) }
}

func NewSession(gw Gateway, cls Classifier, blogID uuid.UUID, opts ...SessionOption) *Session {
	s := &Session{
		gateway:    gw,
		classifier: cls,
		blogID:     blogID,
		previewLen: DefaultPreviewLength,
		likes:      NewLikeTracker(),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) BlogID() uuid.UUID { return s.blogID }

// Tree returns the last applied tree.
func (s *Session) Tree() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// Liked returns the ids the viewer has liked.
func (s *Session) Liked() []uuid.UUID { return s.likes.IDs() }

// Refresh fetches and reassembles the thread. applied is false when a newer
// fetch was issued meanwhile; the returned tree is then the last applied one.
func (s *Session) Refresh(ctx context.Context) (tree []*Node, applied bool, err error) {
	seq := s.seq.Add(1)
	comments, err := s.gateway.ListComments(ctx, s.blogID)
	if err != nil {
		return nil, false, Persistence("list comments", err)
	}
	assembled := Assemble(comments, s.classifier)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq.Load() || seq <= s.applied {
		s.log.Debug("discarding stale comment fetch",
			zap.Uint64("seq", seq), zap.Uint64("applied", s.applied))
		return s.tree, false, nil
	}
	s.applied = seq
	s.tree = assembled
	return assembled, true, nil
}

func (s *Session) lookup(ctx context.Context, id uuid.UUID) (*Node, error) {
	s.mu.RLock()
	n := Find(s.tree, id)
	s.mu.RUnlock()
	if n != nil {
		return n, nil
	}
	if _, _, err := s.Refresh(ctx); err != nil {
		s.log.Warn("refresh after missing comment failed", zap.Error(err))
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *Session) reconcile(ctx context.Context) {
	if _, _, err := s.Refresh(ctx); err != nil {
		s.log.Warn("refresh after mutation failed", zap.Error(err))
	}
}

// Approve moves a comment to approved.
func (s *Session) Approve(ctx context.Context, id uuid.UUID) error {
	return s.moderate(ctx, id, ActionApprove)
}

// Reject moves a comment to rejected.
func (s *Session) Reject(ctx context.Context, id uuid.UUID) error {
	return s.moderate(ctx, id, ActionReject)
}

func (s *Session) moderate(ctx context.Context, id uuid.UUID, action Action) error {
	n, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	next, err := Transition(n.State, action)
	if err != nil {
		return err
	}
	if err := s.gateway.SetApproval(ctx, id, next == StateApproved); err != nil {
		return Persistence("set approval", err)
	}
	s.reconcile(ctx)
	return nil
}

// Like increments the like count once per viewer. A second call without an
// intervening Unlike returns the known count and does not touch the gateway.
func (s *Session) Like(ctx context.Context, id uuid.UUID) (int, error) {
	n, err := s.lookup(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := Transition(n.State, ActionLike); err != nil {
		return 0, err
	}
	if !s.likes.Mark(id) {
		return n.Likes, nil
	}
	count, err := s.gateway.IncrementLikes(ctx, id, 1)
	if err != nil {
		s.likes.Unmark(id)
		return 0, Persistence("increment likes", err)
	}
	s.logLike(ctx, n)
	s.reconcile(ctx)
	return count, nil
}

// Unlike is the symmetric decrement of Like.
func (s *Session) Unlike(ctx context.Context, id uuid.UUID) (int, error) {
	n, err := s.lookup(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := Transition(n.State, ActionUnlike); err != nil {
		return 0, err
	}
	if !s.likes.Unmark(id) {
		return n.Likes, nil
	}
	count, err := s.gateway.IncrementLikes(ctx, id, -1)
	if err != nil {
		s.likes.Mark(id)
		return 0, Persistence("decrement likes", err)
	}
	s.reconcile(ctx)
	return count, nil
}

func (s *Session) logLike(ctx context.Context, n *Node) {
	if s.activity == nil {
		return
	}
	title := LikeActivityTitle(n)
	refID := n.ID
	go func() {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityTimeout)
		defer cancel()
		if err := s.activity.LogLikeActivity(actx, title, refID); err != nil {
			s.log.Warn("like activity not recorded", zap.String("comment_id", refID.String()), zap.Error(err))
		}
	}()
}

// Post submits a top-level comment.
func (s *Session) Post(ctx context.Context, authorName, authorEmail, content string) (*domain.Comment, error) {
	c, err := s.gateway.CreateComment(ctx, NewComment{
		BlogID:      s.blogID,
		AuthorName:  authorName,
		AuthorEmail: authorEmail,
		Content:     content,
	})
	if err != nil {
		return nil, Persistence("create comment", err)
	}
	s.reconcile(ctx)
	return c, nil
}

// Reply submits a reply to an approved comment.
func (s *Session) Reply(ctx context.Context, targetID uuid.UUID, authorName, authorEmail, content string) (*domain.Comment, ReplyingTo, error) {
	target, err := s.lookup(ctx, targetID)
	if err != nil {
		return nil, ReplyingTo{}, err
	}
	route, err := RouteReply(target, s.previewLen)
	if err != nil {
		return nil, ReplyingTo{}, err
	}
	parentID := route.ParentID
	c, err := s.gateway.CreateComment(ctx, NewComment{
		BlogID:      route.BlogID,
		ParentID:    &parentID,
		AuthorName:  authorName,
		AuthorEmail: authorEmail,
		Content:     content,
	})
	if err != nil {
		return nil, ReplyingTo{}, Persistence("create reply", err)
	}
	s.reconcile(ctx)
	return c, route.ReplyingTo, nil
}

// Delete removes an approved comment together with its descendants, deepest
// first. Descendants that are already gone are skipped.
func (s *Session) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if _, err := Transition(n.State, ActionDelete); err != nil {
		return err
	}
	s.mu.RLock()
	ids := Subtree(s.tree, id)
	s.mu.RUnlock()

	for _, cid := range ids {
		err := s.gateway.DeleteComment(ctx, cid)
		if err != nil && !(errors.Is(err, ErrNotFound) && cid != id) {
			s.reconcile(ctx)
			return Persistence("delete comment", err)
		}
	}
	s.reconcile(ctx)
	return nil
}

// LikeActivityTitle is the activity feed title for a like on n.
func LikeActivityTitle(n *Node) string {
	return fmt.Sprintf("Comment by %s liked: %s", n.AuthorName, Preview(n.Content, DefaultPreviewLength))
}
