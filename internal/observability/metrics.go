package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedline_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// PostsCreated counts successfully created posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedline_posts_created_total",
		Help: "Total number of posts created",
	})

	// LikeToggles counts like toggles by resulting state ("liked" or "unliked").
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedline_like_toggles_total",
		Help: "Total number of like toggles by resulting state",
	}, []string{"result"})

	// SubscriptionChanges counts subscribe/unsubscribe calls by outcome.
	SubscriptionChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedline_subscription_changes_total",
		Help: "Total number of subscription calls by outcome",
	}, []string{"outcome"})

	// NotificationsPublished counts published notification events by type and status.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedline_notifications_published_total",
		Help: "Total number of notification events published",
	}, []string{"event_type", "status"})
)
