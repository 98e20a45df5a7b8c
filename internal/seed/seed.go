// Package seed populates the database with demo data for development and testing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"feedline/internal/middleware"
	"feedline/internal/models"
	"feedline/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configures a random seeding run.
type Options struct {
	NumUsers       int
	NumPosts       int
	MaxDays        int
	SubscribeRatio float64
	ShouldClean    bool
}

// Seeder writes demo data through the repositories.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	likes    repository.LikeRepository
	subs     repository.SubscriptionRepository
	faker    *gofakeit.Faker
	rng      *rand.Rand
}

// NewSeeder creates a Seeder bound to db. A zero seed uses the current time.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		likes:    repository.NewLikeRepository(db),
		subs:     repository.NewSubscriptionRepository(db),
		faker:    gofakeit.New(seed),
		//nolint:gosec // Weak random number generator is fine for seeding
		rng: rand.New(rand.NewSource(seed)),
	}
}

// ClearAll removes every row the application owns, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	middleware.Logger.InfoContext(ctx, "clearing existing data")
	for _, model := range []any{&models.Like{}, &models.Comment{}, &models.Subscription{}, &models.Post{}, &models.User{}} {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Summary counts what a seeding run created.
type Summary struct {
	Users         int
	Posts         int
	Comments      int
	Likes         int
	Subscriptions int
}

// Run creates random users, a subscription mesh between them, and posts
// with comments and likes.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	if opts.SubscribeRatio <= 0 {
		opts.SubscribeRatio = 0.3
	}

	summary := &Summary{}
	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := s.users.FirstOrCreate(ctx, s.username())
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	for _, a := range users {
		for _, b := range users {
			if a.ID == b.ID || s.rng.Float64() >= opts.SubscribeRatio {
				continue
			}
			err := s.subs.Create(ctx, a.ID, b.ID)
			if err == nil {
				summary.Subscriptions++
				continue
			}
			if !errors.Is(err, repository.ErrAlreadySubscribed) {
				return nil, fmt.Errorf("subscribe %s to %s: %w", a.Username, b.Username, err)
			}
		}
	}

	for i := 0; i < opts.NumPosts; i++ {
		author := users[s.rng.Intn(len(users))]
		post := &models.Post{
			AuthorID:  author.ID,
			Text:      truncate(s.faker.Paragraph(1, 3, 12, " "), models.PostTextMaxLength),
			CreatedAt: s.pastTime(opts.MaxDays),
		}
		post.UpdatedAt = post.CreatedAt
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		summary.Posts++

		for j := s.rng.Intn(4); j > 0; j-- {
			commenter := users[s.rng.Intn(len(users))]
			comment := &models.Comment{
				PostID:   post.ID,
				AuthorID: commenter.ID,
				Text:     truncate(s.faker.Sentence(8), models.CommentTextMaxLength),
			}
			if err := s.comments.Create(ctx, comment); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			summary.Comments++
		}

		for _, liker := range users {
			if s.rng.Float64() >= 0.2 {
				continue
			}
			if _, err := s.likes.Toggle(ctx, post.ID, liker.ID); err != nil {
				return nil, fmt.Errorf("like post: %w", err)
			}
			summary.Likes++
		}
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		"users", summary.Users,
		"posts", summary.Posts,
		"comments", summary.Comments,
		"likes", summary.Likes,
		"subscriptions", summary.Subscriptions,
	)
	return summary, nil
}

func (s *Seeder) username() string {
	name := strings.ToLower(s.faker.Username())
	return fmt.Sprintf("%s%d", name, s.faker.Number(100, 999))
}

func (s *Seeder) pastTime(maxDays int) time.Time {
	back := time.Duration(s.rng.Intn(maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

func truncate(text string, maxRunes int) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= maxRunes {
		return string(r)
	}
	return strings.TrimSpace(string(r[:maxRunes]))
}
