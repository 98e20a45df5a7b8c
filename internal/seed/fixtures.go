package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"time"

	"feedline/internal/models"
	"feedline/internal/repository"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yml
var fixtureFS embed.FS

// Fixture is a hand-written data set with stable usernames.
type Fixture struct {
	Users         []string             `yaml:"users"`
	Subscriptions []FixtureSubscription `yaml:"subscriptions"`
	Posts         []FixturePost         `yaml:"posts"`
}

type FixtureSubscription struct {
	Subscriber string `yaml:"subscriber"`
	Target     string `yaml:"target"`
}

type FixturePost struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
	// AgeMinutes places the post in the past relative to load time.
	AgeMinutes int              `yaml:"age_minutes"`
	Likes      []string         `yaml:"likes"`
	Comments   []FixtureComment `yaml:"comments"`
}

type FixtureComment struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

// ParseFixture decodes a YAML fixture, rejecting unknown fields.
func ParseFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// BuiltinFixture loads one of the fixtures embedded in the binary by name.
func BuiltinFixture(name string) (*Fixture, error) {
	file, err := fixtureFS.Open("fixtures/" + name + ".yml")
	if err != nil {
		return nil, fmt.Errorf("unknown fixture %q: %w", name, err)
	}
	defer func() { _ = file.Close() }()
	return ParseFixture(file)
}

// ApplyFixture writes the fixture. Users are matched by username so
// applying the same fixture twice creates no duplicate users or edges.
func (s *Seeder) ApplyFixture(ctx context.Context, f *Fixture) (*Summary, error) {
	summary := &Summary{}
	byName := make(map[string]*models.User)

	resolve := func(username string) (*models.User, error) {
		if u, ok := byName[username]; ok {
			return u, nil
		}
		u, err := s.users.FirstOrCreate(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", username, err)
		}
		byName[username] = u
		summary.Users++
		return u, nil
	}

	for _, name := range f.Users {
		if _, err := resolve(name); err != nil {
			return nil, err
		}
	}

	for _, edge := range f.Subscriptions {
		subscriber, err := resolve(edge.Subscriber)
		if err != nil {
			return nil, err
		}
		target, err := resolve(edge.Target)
		if err != nil {
			return nil, err
		}
		if err := s.subs.Create(ctx, subscriber.ID, target.ID); err != nil {
			if errors.Is(err, repository.ErrAlreadySubscribed) {
				continue
			}
			return nil, fmt.Errorf("subscribe %s to %s: %w", edge.Subscriber, edge.Target, err)
		}
		summary.Subscriptions++
	}

	now := time.Now()
	for _, fp := range f.Posts {
		author, err := resolve(fp.Author)
		if err != nil {
			return nil, err
		}
		createdAt := now.Add(-time.Duration(fp.AgeMinutes) * time.Minute)
		post := &models.Post{AuthorID: author.ID, Text: fp.Text, CreatedAt: createdAt, UpdatedAt: createdAt}
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("post by %s: %w", fp.Author, err)
		}
		summary.Posts++

		for _, fc := range fp.Comments {
			commenter, err := resolve(fc.Author)
			if err != nil {
				return nil, err
			}
			if err := s.comments.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: commenter.ID, Text: fc.Text}); err != nil {
				return nil, fmt.Errorf("comment by %s: %w", fc.Author, err)
			}
			summary.Comments++
		}

		for _, name := range fp.Likes {
			liker, err := resolve(name)
			if err != nil {
				return nil, err
			}
			liked, err := s.likes.IsLiked(ctx, post.ID, liker.ID)
			if err != nil {
				return nil, err
			}
			if liked {
				continue
			}
			if _, err := s.likes.Toggle(ctx, post.ID, liker.ID); err != nil {
				return nil, fmt.Errorf("like by %s: %w", name, err)
			}
			summary.Likes++
		}
	}

	return summary, nil
}
