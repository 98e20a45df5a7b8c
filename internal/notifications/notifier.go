// Package notifications publishes per-user events to Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"feedline/internal/middleware"
	"feedline/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Event types published to user channels.
const (
	EventPostCreated     = "post_created"
	EventSubscriberAdded = "subscriber_added"
)

// Event is the envelope written to a user channel.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a raw payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishUserEvent wraps payload in an Event envelope and publishes it.
// Failures are logged and counted, never returned.
func (n *Notifier) PublishUserEvent(ctx context.Context, userID uint, eventType string, payload map[string]any) {
	if n == nil || n.rdb == nil {
		return
	}
	eventJSON, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to marshal event", slog.String("event_type", eventType), slog.String("error", err.Error()))
		observability.NotificationsPublished.WithLabelValues(eventType, "error").Inc()
		return
	}
	if err := n.PublishUser(ctx, userID, string(eventJSON)); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("event_type", eventType),
			slog.Uint64("recipient_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
		observability.NotificationsPublished.WithLabelValues(eventType, "error").Inc()
		return
	}
	observability.NotificationsPublished.WithLabelValues(eventType, "ok").Inc()
}

// PostCreated tells every subscriber of the author about a new post.
func (n *Notifier) PostCreated(ctx context.Context, subscriberIDs []uint, postID, authorID uint, authorUsername string) {
	payload := map[string]any{
		"post_id":   postID,
		"author_id": authorID,
		"author":    authorUsername,
	}
	for _, id := range subscriberIDs {
		n.PublishUserEvent(ctx, id, EventPostCreated, payload)
	}
}

// SubscriberAdded tells target that subscriber started following them.
func (n *Notifier) SubscriberAdded(ctx context.Context, targetID, subscriberID uint, subscriberUsername string) {
	n.PublishUserEvent(ctx, targetID, EventSubscriberAdded, map[string]any{
		"subscriber_id": subscriberID,
		"subscriber":    subscriberUsername,
	})
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
