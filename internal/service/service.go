// Package service holds the business rules behind each HTTP operation.
// Every method takes the acting user's id explicitly; 0 means anonymous.
package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"feedline/internal/models"
)

// Notifier receives domain events after they are committed.
type Notifier interface {
	PostCreated(ctx context.Context, subscriberIDs []uint, postID, authorID uint, authorUsername string)
	SubscriberAdded(ctx context.Context, targetID, subscriberID uint, subscriberUsername string)
}

type noopNotifier struct{}

func (noopNotifier) PostCreated(context.Context, []uint, uint, uint, string) {}
func (noopNotifier) SubscriberAdded(context.Context, uint, uint, string)    {}

// MaxPageSize caps the limit query parameter.
const MaxPageSize = 100

// Page selects a window of a newest-first list. A zero Limit returns everything.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit < 0 {
		p.Limit = 0
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func requireActor(actorID uint) error {
	if actorID == 0 {
		return models.NewUnauthorizedError("Authorization required")
	}
	return nil
}

// validateText trims text and checks it is non-empty and at most maxLen code points.
func validateText(field, text string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", models.NewValidationError(field + " is required")
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return "", models.NewValidationError(field + " too long (max " + strconv.Itoa(maxLen) + " characters)")
	}
	return trimmed, nil
}
