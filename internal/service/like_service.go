package service

import (
	"context"

	"feedline/internal/models"
	"feedline/internal/observability"
	"feedline/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type LikeService struct {
	likeRepo repository.LikeRepository
	postRepo repository.PostRepository
}

func NewLikeService(likeRepo repository.LikeRepository, postRepo repository.PostRepository) *LikeService {
	return &LikeService{likeRepo: likeRepo, postRepo: postRepo}
}

// ToggleLike flips the actor's like on the post and returns the new state.
func (s *LikeService) ToggleLike(ctx context.Context, actorID, postID uint) (result models.LikeResult, err error) {
	ctx, span := observability.StartSpan(ctx, "LikeService.ToggleLike",
		attribute.Int64("post_id", int64(postID)),
		attribute.Int64("user_id", int64(actorID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := requireActor(actorID); err != nil {
		return models.LikeResult{}, err
	}
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return models.LikeResult{}, err
	}

	result, err = s.likeRepo.Toggle(ctx, postID, actorID)
	if err != nil {
		return models.LikeResult{}, err
	}

	state := "unliked"
	if result.Liked {
		state = "liked"
	}
	observability.LikeToggles.WithLabelValues(state).Inc()
	return result, nil
}
