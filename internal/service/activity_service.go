package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/observability"
	"github.com/softiel/backend/internal/repository"
	"github.com/softiel/backend/internal/thread"
	"go.uber.org/zap"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ActivityEvent is the payload published for every recorded activity.
type ActivityEvent struct {
	ID        uuid.UUID           `json:"id"`
	Type      domain.ActivityType `json:"type"`
	Title     string              `json:"title"`
	RefID     uuid.UUID           `json:"ref_id"`
	CreatedAt time.Time           `json:"created_at"`
}

// ActivityService persists the admin activity feed and mirrors it to a kafka
// topic when a writer is configured.
type ActivityService struct {
	repo    *repository.ActivityRepository
	writer  MessageWriter
	topic   string
	metrics *observability.CommentMetrics
	log     *zap.Logger
}

var _ thread.ActivityLogger = (*ActivityService)(nil)

func NewActivityService(repo *repository.ActivityRepository, log *zap.Logger) *ActivityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActivityService{repo: repo, log: log}
}

// SetPublisher mirrors recorded activities to topic.
func (s *ActivityService) SetPublisher(w MessageWriter, topic string) {
	s.writer = w
	s.topic = topic
}

func (s *ActivityService) SetMetrics(m *observability.CommentMetrics) {
	s.metrics = m
}

// LogLikeActivity records that a comment was liked
func (s *ActivityService) LogLikeActivity(ctx context.Context, title string, refID uuid.UUID) error {
	return s.record(ctx, domain.ActivityCommentLiked, title, refID)
}

// LogModeration records an approve or reject decision
func (s *ActivityService) LogModeration(ctx context.Context, approved bool, title string, refID uuid.UUID) error {
	t := domain.ActivityCommentRejected
	if approved {
		t = domain.ActivityCommentApproved
	}
	return s.record(ctx, t, title, refID)
}

// LogDeletion records a removed comment
func (s *ActivityService) LogDeletion(ctx context.Context, title string, refID uuid.UUID) error {
	return s.record(ctx, domain.ActivityCommentDeleted, title, refID)
}

func (s *ActivityService) record(ctx context.Context, t domain.ActivityType, title string, refID uuid.UUID) error {
	activity := &domain.Activity{
		Type:  t,
		Title: truncateTitle(title),
		RefID: refID,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return err
	}
	s.publish(ctx, activity)
	return nil
}

// publish failures are logged only; the database row is the record of truth.
func (s *ActivityService) publish(ctx context.Context, a *domain.Activity) {
	if s.writer == nil {
		return
	}
	data, err := json.Marshal(ActivityEvent{
		ID:        a.ID,
		Type:      a.Type,
		Title:     a.Title,
		RefID:     a.RefID,
		CreatedAt: a.CreatedAt,
	})
	if err != nil {
		s.log.Error("encode activity event failed", zap.Error(err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(a.RefID.String()),
		Value: data,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.log.Warn("publish activity failed", zap.String("topic", s.topic), zap.Error(err))
		s.metrics.ObserveActivityPublish(s.topic, "error")
		return
	}
	s.metrics.ObserveActivityPublish(s.topic, "success")
}

func truncateTitle(title string) string {
	const maxTitle = 255
	r := []rune(title)
	if len(r) <= maxTitle {
		return title
	}
	return string(r[:maxTitle-3]) + "..."
}

// List returns the activity feed, newest first
func (s *ActivityService) List(ctx context.Context, unreadOnly bool, page, limit int) ([]domain.Activity, int64, error) {
	return s.repo.FindRecent(ctx, unreadOnly, page, limit)
}

func (s *ActivityService) CountUnread(ctx context.Context) (int64, error) {
	return s.repo.CountUnread(ctx)
}

func (s *ActivityService) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id)
}

func (s *ActivityService) MarkAllAsRead(ctx context.Context) error {
	return s.repo.MarkAllAsRead(ctx)
}

// Prune removes activities older than retention
func (s *ActivityService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, time.Now().Add(-retention))
}
