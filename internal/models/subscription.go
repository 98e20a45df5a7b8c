package models

import "time"

// Subscription is a directed follow edge from Subscriber to Target.
type Subscription struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubscriberID uint      `gorm:"not null;uniqueIndex:idx_subscriptions_pair;check:chk_subscriptions_not_self,subscriber_id <> target_id" json:"subscriber_id"`
	Subscriber   *User     `gorm:"foreignKey:SubscriberID;constraint:OnDelete:CASCADE" json:"-"`
	TargetID     uint      `gorm:"not null;uniqueIndex:idx_subscriptions_pair;index" json:"target_id"`
	Target       *User     `gorm:"foreignKey:TargetID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SubscriptionOutcome describes the result of a subscribe or unsubscribe call.
// Repeated calls are informational, not errors.
type SubscriptionOutcome string

const (
	OutcomeSubscribed        SubscriptionOutcome = "subscribed"
	OutcomeAlreadySubscribed SubscriptionOutcome = "already_subscribed"
	OutcomeUnsubscribed      SubscriptionOutcome = "unsubscribed"
	OutcomeNotSubscribed     SubscriptionOutcome = "not_subscribed"
)

// Changed reports whether the outcome altered the subscription graph.
func (o SubscriptionOutcome) Changed() bool {
	return o == OutcomeSubscribed || o == OutcomeUnsubscribed
}

// Message is a human readable description of the outcome.
func (o SubscriptionOutcome) Message(username string) string {
	switch o {
	case OutcomeSubscribed:
		return "You are now subscribed to " + username
	case OutcomeAlreadySubscribed:
		return "You are already subscribed to " + username
	case OutcomeUnsubscribed:
		return "You have unsubscribed from " + username
	case OutcomeNotSubscribed:
		return "You are not subscribed to " + username
	default:
		return string(o)
	}
}
