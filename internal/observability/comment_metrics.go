package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CommentMetrics counts comment mutations. A nil *CommentMetrics records nothing.
type CommentMetrics struct {
	created         *prometheus.CounterVec
	moderations     *prometheus.CounterVec
	likes           *prometheus.CounterVec
	deleted         prometheus.Counter
	activityPublish *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

func NewCommentMetrics(registry *prometheus.Registry, serviceName string) *CommentMetrics {
	if registry == nil {
		registry = NewMetricsRegistry()
	}

	constLabels := prometheus.Labels{}
	if serviceName != "" {
		constLabels["service"] = serviceName
	}

	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "comments",
		Subsystem:   "thread",
		Name:        "created_total",
		Help:        "Comments created, by author role.",
		ConstLabels: constLabels,
	}, []string{"role"})

	moderations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "comments",
		Subsystem:   "moderation",
		Name:        "transitions_total",
		Help:        "Moderation requests, by action and result.",
		ConstLabels: constLabels,
	}, []string{"action", "result"})

	likes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "comments",
		Subsystem:   "likes",
		Name:        "requests_total",
		Help:        "Like and unlike requests, by action and result.",
		ConstLabels: constLabels,
	}, []string{"action", "result"})

	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "comments",
		Subsystem:   "thread",
		Name:        "deleted_total",
		Help:        "Comments removed, descendants included.",
		ConstLabels: constLabels,
	})

	activityPublish := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "comments",
		Subsystem:   "activity",
		Name:        "publish_total",
		Help:        "Activity events published to kafka.",
		ConstLabels: constLabels,
	}, []string{"topic", "result"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "comments",
		Subsystem:   "cache",
		Name:        "lookups_total",
		Help:        "Comment list cache lookups.",
		ConstLabels: constLabels,
	}, []string{"result"})

	registry.MustRegister(created, moderations, likes, deleted, activityPublish, cacheLookups)

	return &CommentMetrics{
		created:         created,
		moderations:     moderations,
		likes:           likes,
		deleted:         deleted,
		activityPublish: activityPublish,
		cacheLookups:    cacheLookups,
	}
}

func (m *CommentMetrics) ObserveCreated(role string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(role).Inc()
}

func (m *CommentMetrics) ObserveModeration(action, result string) {
	if m == nil {
		return
	}
	m.moderations.WithLabelValues(action, result).Inc()
}

func (m *CommentMetrics) ObserveLike(action, result string) {
	if m == nil {
		return
	}
	m.likes.WithLabelValues(action, result).Inc()
}

func (m *CommentMetrics) ObserveDeleted(n int) {
	if m == nil {
		return
	}
	m.deleted.Add(float64(n))
}

func (m *CommentMetrics) ObserveActivityPublish(topic, result string) {
	if m == nil {
		return
	}
	m.activityPublish.WithLabelValues(topic, result).Inc()
}

func (m *CommentMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
