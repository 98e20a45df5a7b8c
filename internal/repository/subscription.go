package repository

import (
	"context"
	"errors"

	"feedline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrAlreadySubscribed is returned by Create when the edge exists.
	ErrAlreadySubscribed = errors.New("already subscribed")
	// ErrNotSubscribed is returned by Delete when there is no edge to remove.
	ErrNotSubscribed = errors.New("not subscribed")
)

// SubscriptionRepository defines persistence operations for the follow graph.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscriberID, targetID uint) error
	Delete(ctx context.Context, subscriberID, targetID uint) error
	Exists(ctx context.Context, subscriberID, targetID uint) (bool, error)
	BatchExists(ctx context.Context, subscriberID uint, targetIDs []uint) (map[uint]bool, error)
	ListSubscriptions(ctx context.Context, subscriberID uint) ([]models.UserEdge, error)
	ListSubscribers(ctx context.Context, targetID uint) ([]models.UserEdge, error)
	SubscriberIDs(ctx context.Context, targetID uint) ([]uint, error)
	CountSubscribers(ctx context.Context, targetID uint) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID uint) (int64, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Create inserts the edge. An existing edge is reported as
// ErrAlreadySubscribed; the unique pair index decides under concurrency.
func (r *subscriptionRepository) Create(ctx context.Context, subscriberID, targetID uint) error {
	sub := models.Subscription{SubscriberID: subscriberID, TargetID: targetID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&sub)
	if res.Error != nil {
		switch {
		case errors.Is(res.Error, gorm.ErrDuplicatedKey):
			return ErrAlreadySubscribed
		case errors.Is(res.Error, gorm.ErrForeignKeyViolated):
			return models.NewNotFoundError("User", targetID)
		case errors.Is(res.Error, gorm.ErrCheckConstraintViolated):
			return models.NewSelfSubscriptionError()
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadySubscribed
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, subscriberID, targetID uint) error {
	res := r.db.WithContext(ctx).
		Where("subscriber_id = ? AND target_id = ?", subscriberID, targetID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotSubscribed
	}
	return nil
}

func (r *subscriptionRepository) Exists(ctx context.Context, subscriberID, targetID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("subscriber_id = ? AND target_id = ?", subscriberID, targetID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// BatchExists reports, for each of targetIDs, whether subscriberID subscribes to it.
func (r *subscriptionRepository) BatchExists(ctx context.Context, subscriberID uint, targetIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool, len(targetIDs))
	for _, id := range targetIDs {
		result[id] = false
	}
	if len(targetIDs) == 0 {
		return result, nil
	}

	var found []uint
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("subscriber_id = ? AND target_id IN ?", subscriberID, targetIDs).
		Pluck("target_id", &found).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range found {
		result[id] = true
	}
	return result, nil
}

// ListSubscriptions returns the users subscriberID follows, most recent first.
func (r *subscriptionRepository) ListSubscriptions(ctx context.Context, subscriberID uint) ([]models.UserEdge, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Target").
		Where("subscriber_id = ?", subscriberID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&subs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	edges := make([]models.UserEdge, 0, len(subs))
	for _, s := range subs {
		if s.Target == nil {
			continue
		}
		edges = append(edges, models.UserEdge{User: *s.Target, SubscribedAt: s.CreatedAt, SubscriptionID: s.ID})
	}
	return edges, nil
}

// ListSubscribers returns the users following targetID, most recent first.
func (r *subscriptionRepository) ListSubscribers(ctx context.Context, targetID uint) ([]models.UserEdge, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Subscriber").
		Where("target_id = ?", targetID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&subs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	edges := make([]models.UserEdge, 0, len(subs))
	for _, s := range subs {
		if s.Subscriber == nil {
			continue
		}
		edges = append(edges, models.UserEdge{User: *s.Subscriber, SubscribedAt: s.CreatedAt, SubscriptionID: s.ID})
	}
	return edges, nil
}

func (r *subscriptionRepository) SubscriberIDs(ctx context.Context, targetID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("target_id = ?", targetID).
		Pluck("subscriber_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *subscriptionRepository) CountSubscribers(ctx context.Context, targetID uint) (int64, error) {
	return r.count(ctx, "target_id = ?", targetID)
}

func (r *subscriptionRepository) CountSubscriptions(ctx context.Context, subscriberID uint) (int64, error) {
	return r.count(ctx, "subscriber_id = ?", subscriberID)
}

func (r *subscriptionRepository) count(ctx context.Context, where string, id uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Subscription{}).Where(where, id).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
