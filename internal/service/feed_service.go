package service

import (
	"context"

	"feedline/internal/models"
	"feedline/internal/repository"
)

// FeedService serves the read-side views: home feed, profile, explore and
// the subscription lists.
type FeedService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	subRepo  repository.SubscriptionRepository
	images   *ImageService
}

func NewFeedService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	images *ImageService,
) *FeedService {
	return &FeedService{postRepo: postRepo, userRepo: userRepo, subRepo: subRepo, images: images}
}

// HomeFeed returns the viewer's posts and those of everyone they subscribe
// to, newest first. Anonymous viewers get every post.
func (s *FeedService) HomeFeed(ctx context.Context, viewerID uint, page Page) ([]*models.Post, error) {
	page = page.normalize()
	posts, err := s.postRepo.HomeFeed(ctx, viewerID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	s.resolveImageURLs(posts)
	return posts, nil
}

// Profile returns target's posts and subscription counts as seen by viewer.
func (s *FeedService) Profile(ctx context.Context, viewerID, targetID uint) (*models.Profile, error) {
	if err := requireActor(viewerID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	posts, err := s.postRepo.ListByAuthor(ctx, targetID, viewerID, 0, 0)
	if err != nil {
		return nil, err
	}
	s.resolveImageURLs(posts)

	profile := &models.Profile{User: *user, Posts: posts}
	if viewerID != targetID {
		if profile.IsSubscribed, err = s.subRepo.Exists(ctx, viewerID, targetID); err != nil {
			return nil, err
		}
	}
	if profile.PostsCount, err = s.postRepo.CountByAuthor(ctx, targetID); err != nil {
		return nil, err
	}
	if profile.SubscribersCount, err = s.subRepo.CountSubscribers(ctx, targetID); err != nil {
		return nil, err
	}
	if profile.SubscriptionsCount, err = s.subRepo.CountSubscriptions(ctx, targetID); err != nil {
		return nil, err
	}
	return profile, nil
}

// Explore lists every user except the viewer, ordered by username.
// IsSubscribed is only filled in for authenticated viewers.
func (s *FeedService) Explore(ctx context.Context, viewerID uint) ([]models.ExploreUser, error) {
	users, err := s.userRepo.ListExcept(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	var subscribed map[uint]bool
	if viewerID != 0 {
		ids := make([]uint, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		if subscribed, err = s.subRepo.BatchExists(ctx, viewerID, ids); err != nil {
			return nil, err
		}
	}

	result := make([]models.ExploreUser, len(users))
	for i, u := range users {
		result[i] = models.ExploreUser{User: *u}
		if subscribed != nil {
			v := subscribed[u.ID]
			result[i].IsSubscribed = &v
		}
	}
	return result, nil
}

// Subscriptions lists the users viewer follows, most recent first.
func (s *FeedService) Subscriptions(ctx context.Context, viewerID uint) ([]models.UserEdge, error) {
	if err := requireActor(viewerID); err != nil {
		return nil, err
	}
	return s.subRepo.ListSubscriptions(ctx, viewerID)
}

// Subscribers lists the users following viewer, most recent first.
func (s *FeedService) Subscribers(ctx context.Context, viewerID uint) ([]models.UserEdge, error) {
	if err := requireActor(viewerID); err != nil {
		return nil, err
	}
	return s.subRepo.ListSubscribers(ctx, viewerID)
}

func (s *FeedService) resolveImageURLs(posts []*models.Post) {
	for _, p := range posts {
		p.ImageURL = s.images.URL(p.Image)
	}
}
