package service

import (
	"context"
	"log/slog"

	"feedline/internal/middleware"
	"feedline/internal/models"
	"feedline/internal/observability"
	"feedline/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	postRepo repository.PostRepository
	subRepo  repository.SubscriptionRepository
	images   *ImageService
	notifier Notifier
}

type CreatePostInput struct {
	AuthorID uint
	Text     string
	Image    *ImageUpload
}

// UpdatePostInput carries optional changes; nil fields are left untouched.
type UpdatePostInput struct {
	ActorID uint
	PostID  uint
	Text    *string
	Image   *ImageUpload
}

func NewPostService(
	postRepo repository.PostRepository,
	subRepo repository.SubscriptionRepository,
	images *ImageService,
	notifier Notifier,
) *PostService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &PostService{
		postRepo: postRepo,
		subRepo:  subRepo,
		images:   images,
		notifier: notifier,
	}
}

// CreatePost validates and stores a post. If the insert fails, any image
// blob written for it is removed again.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost", attribute.Int64("author_id", int64(in.AuthorID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := requireActor(in.AuthorID); err != nil {
		return nil, err
	}
	text, err := validateText("Text", in.Text, models.PostTextMaxLength)
	if err != nil {
		return nil, err
	}

	var imageKey string
	if in.Image != nil {
		stored, err := s.storeImage(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		imageKey = stored.Key
	}

	post = &models.Post{AuthorID: in.AuthorID, Text: text, Image: imageKey}
	if err := s.postRepo.Create(ctx, post); err != nil {
		s.removeImage(ctx, imageKey)
		return nil, err
	}
	observability.PostsCreated.Inc()

	created, err := s.postRepo.GetByID(ctx, post.ID, in.AuthorID)
	if err != nil {
		return nil, err
	}
	s.resolveImageURL(created)
	s.notifyPostCreated(ctx, created)

	middleware.Logger.InfoContext(ctx, "post created", slog.Uint64("post_id", uint64(created.ID)))
	return created, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	s.resolveImageURL(post)
	return post, nil
}

// UpdatePost applies text and image changes for the post's author.
// On any failure the stored post is left as it was.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	if err := requireActor(in.ActorID); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.ActorID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	if in.Text != nil {
		text, err := validateText("Text", *in.Text, models.PostTextMaxLength)
		if err != nil {
			return nil, err
		}
		post.Text = text
	}

	previousImage := post.Image
	if in.Image != nil {
		stored, err := s.storeImage(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = stored.Key
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if post.Image != previousImage {
			s.removeImage(ctx, post.Image)
		}
		return nil, err
	}
	if post.Image != previousImage {
		s.removeImage(ctx, previousImage)
	}

	return s.GetPost(ctx, post.ID, in.ActorID)
}

// DeletePost removes the author's post; comments and likes cascade.
// The image blob, if any, is left in storage.
func (s *PostService) DeletePost(ctx context.Context, actorID, postID uint) error {
	if err := requireActor(actorID); err != nil {
		return err
	}
	post, err := s.postRepo.GetByID(ctx, postID, actorID)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, postID)
}

func (s *PostService) storeImage(ctx context.Context, upload ImageUpload) (*StoredImage, error) {
	if s.images == nil {
		return nil, models.NewValidationError("Image uploads are not enabled")
	}
	return s.images.Store(ctx, upload)
}

func (s *PostService) removeImage(ctx context.Context, key string) {
	if s.images != nil {
		s.images.Remove(ctx, key)
	}
}

func (s *PostService) resolveImageURL(post *models.Post) {
	post.ImageURL = s.images.URL(post.Image)
}

func (s *PostService) notifyPostCreated(ctx context.Context, post *models.Post) {
	if s.subRepo == nil {
		return
	}
	ids, err := s.subRepo.SubscriberIDs(ctx, post.AuthorID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load subscribers for notification", slog.String("error", err.Error()))
		return
	}
	if len(ids) == 0 {
		return
	}
	s.notifier.PostCreated(ctx, ids, post.ID, post.AuthorID, post.Author.Username)
}
