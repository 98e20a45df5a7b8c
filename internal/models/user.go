// Package models contains data structures for the application's domain models.
package models

import "time"

// User is owned by the external auth system. Only the fields the social
// graph needs are mapped here.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// ExploreUser is a user row on the explore page. IsSubscribed is only set
// for authenticated viewers.
type ExploreUser struct {
	User
	IsSubscribed *bool `json:"is_subscribed,omitempty"`
}

// UserEdge is a user reached through a subscription, with the time the
// subscription was created.
type UserEdge struct {
	User           User      `json:"user"`
	SubscribedAt   time.Time `json:"subscribed_at"`
	SubscriptionID uint      `json:"subscription_id"`
}

// Profile aggregates a user's posts and subscription counts.
type Profile struct {
	User               User    `json:"user"`
	Posts              []*Post `json:"posts"`
	IsSubscribed       bool    `json:"is_subscribed"`
	PostsCount         int64   `json:"posts_count"`
	SubscribersCount   int64   `json:"subscribers_count"`
	SubscriptionsCount int64   `json:"subscriptions_count"`
}
