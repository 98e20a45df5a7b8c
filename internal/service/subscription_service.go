package service

import (
	"context"
	"errors"
	"log/slog"

	"feedline/internal/middleware"
	"feedline/internal/models"
	"feedline/internal/observability"
	"feedline/internal/repository"
)

type SubscriptionService struct {
	subRepo  repository.SubscriptionRepository
	userRepo repository.UserRepository
	notifier Notifier
}

// SubscriptionResult reports what a subscribe or unsubscribe call did.
type SubscriptionResult struct {
	Outcome models.SubscriptionOutcome
	Target  *models.User
}

func NewSubscriptionService(
	subRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
) *SubscriptionService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &SubscriptionService{subRepo: subRepo, userRepo: userRepo, notifier: notifier}
}

// Subscribe makes actor follow target. Repeating it is informational.
func (s *SubscriptionService) Subscribe(ctx context.Context, actorID, targetID uint) (*SubscriptionResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if actorID == target.ID {
		return nil, models.NewSelfSubscriptionError()
	}

	outcome := models.OutcomeSubscribed
	if err := s.subRepo.Create(ctx, actorID, targetID); err != nil {
		if !errors.Is(err, repository.ErrAlreadySubscribed) {
			return nil, err
		}
		outcome = models.OutcomeAlreadySubscribed
	}
	observability.SubscriptionChanges.WithLabelValues(string(outcome)).Inc()

	if outcome.Changed() {
		s.notifySubscriberAdded(ctx, actorID, targetID)
	}
	return &SubscriptionResult{Outcome: outcome, Target: target}, nil
}

// Unsubscribe removes the edge from actor to target if present.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, actorID, targetID uint) (*SubscriptionResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	outcome := models.OutcomeUnsubscribed
	if err := s.subRepo.Delete(ctx, actorID, targetID); err != nil {
		if !errors.Is(err, repository.ErrNotSubscribed) {
			return nil, err
		}
		outcome = models.OutcomeNotSubscribed
	}
	observability.SubscriptionChanges.WithLabelValues(string(outcome)).Inc()
	return &SubscriptionResult{Outcome: outcome, Target: target}, nil
}

func (s *SubscriptionService) notifySubscriberAdded(ctx context.Context, actorID, targetID uint) {
	var username string
	if actor, err := s.userRepo.GetByID(ctx, actorID); err == nil {
		username = actor.Username
	} else {
		middleware.Logger.WarnContext(ctx, "failed to load subscriber for notification", slog.String("error", err.Error()))
	}
	s.notifier.SubscriberAdded(ctx, targetID, actorID, username)
}
