package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"feedline/internal/models"
	"feedline/internal/repository"
	"feedline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type publishedEvent struct {
	kind      string
	recipient uint
	actor     uint
	postID    uint
	username  string
}

// recordingNotifier captures events instead of publishing them.
type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) PostCreated(_ context.Context, subscriberIDs []uint, postID, authorID uint, author string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range subscriberIDs {
		n.events = append(n.events, publishedEvent{kind: "post_created", recipient: id, actor: authorID, postID: postID, username: author})
	}
}

func (n *recordingNotifier) SubscriberAdded(_ context.Context, targetID, subscriberID uint, subscriber string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{kind: "subscriber_added", recipient: targetID, actor: subscriberID, username: subscriber})
}

func (n *recordingNotifier) Events() []publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]publishedEvent(nil), n.events...)
}

type services struct {
	db       *gorm.DB
	store    *testutil.MemoryStorage
	notifier *recordingNotifier
	posts    *PostService
	comments *CommentService
	likes    *LikeService
	subs     *SubscriptionService
	feed     *FeedService
}

func newServices(t *testing.T) *services {
	t.Helper()
	return newServicesWithDB(t, testutil.NewTestDB(t))
}

func newServicesWithDB(t *testing.T, db *gorm.DB) *services {
	t.Helper()
	store := testutil.NewMemoryStorage()
	notifier := &recordingNotifier{}

	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	images := NewImageService(store, nil)

	return &services{
		db:       db,
		store:    store,
		notifier: notifier,
		posts:    NewPostService(postRepo, subRepo, images, notifier),
		comments: NewCommentService(repository.NewCommentRepository(db), postRepo),
		likes:    NewLikeService(repository.NewLikeRepository(db), postRepo),
		subs:     NewSubscriptionService(subRepo, userRepo, notifier),
		feed:     NewFeedService(postRepo, userRepo, subRepo, images),
	}
}

func postIDs(posts []*models.Post) []uint {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestScenario_FollowingBringsPostsIntoFeed(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")
	bobsOld := testutil.CreatePost(t, s.db, bob, "older bob post", time.Now().Add(-time.Hour))

	hello, err := s.posts.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "alice", hello.Author.Username)

	aliceFeed, err := s.feed.HomeFeed(ctx, alice.ID, Page{})
	require.NoError(t, err)
	require.NotEmpty(t, aliceFeed)
	assert.Equal(t, hello.ID, aliceFeed[0].ID)

	bobFeed, err := s.feed.HomeFeed(ctx, bob.ID, Page{})
	require.NoError(t, err)
	assert.NotContains(t, postIDs(bobFeed), hello.ID)

	res, err := s.subs.Subscribe(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSubscribed, res.Outcome)

	bobFeed, err = s.feed.HomeFeed(ctx, bob.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, []uint{hello.ID, bobsOld.ID}, postIDs(bobFeed))
}

func TestScenario_LikeTwiceRestoresCount(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	author := testutil.CreateUser(t, s.db, "author")
	carol := testutil.CreateUser(t, s.db, "carol")
	post := testutil.CreatePost(t, s.db, author, "post 42", time.Now())

	before, err := s.posts.GetPost(ctx, post.ID, carol.ID)
	require.NoError(t, err)

	first, err := s.likes.ToggleLike(ctx, carol.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, before.LikesCount+1, first.LikesCount)

	second, err := s.likes.ToggleLike(ctx, carol.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, second.Liked)
	assert.Equal(t, before.LikesCount, second.LikesCount)
}

func TestScenario_LongCommentRejected(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	author := testutil.CreateUser(t, s.db, "author")
	post := testutil.CreatePost(t, s.db, author, "post 7", time.Now())

	_, err := s.comments.AddComment(ctx, author.ID, post.ID, strings.Repeat("x", 501))
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	comments, err := s.comments.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	_, err = s.comments.AddComment(ctx, author.ID, post.ID, strings.Repeat("é", 500))
	require.NoError(t, err, "length is counted in characters, not bytes")
}

func TestLikeToggle_MissingPost(t *testing.T) {
	s := newServices(t)
	carol := testutil.CreateUser(t, s.db, "carol")

	_, err := s.likes.ToggleLike(context.Background(), carol.ID, 404)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = s.likes.ToggleLike(context.Background(), 0, 404)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestSubscribe_Idempotent(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")

	first, err := s.subs.Subscribe(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSubscribed, first.Outcome)
	assert.Equal(t, "bob", first.Target.Username)

	second, err := s.subs.Subscribe(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadySubscribed, second.Outcome)

	var edges int64
	require.NoError(t, s.db.Model(&models.Subscription{}).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	events := s.notifier.Events()
	require.Len(t, events, 1, "only the first subscribe notifies")
	assert.Equal(t, publishedEvent{kind: "subscriber_added", recipient: bob.ID, actor: alice.ID, username: "alice"}, events[0])

	gone, err := s.subs.Unsubscribe(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnsubscribed, gone.Outcome)

	again, err := s.subs.Unsubscribe(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNotSubscribed, again.Outcome)
}

func TestSubscribe_Errors(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s.db, "alice")

	_, err := s.subs.Subscribe(ctx, alice.ID, alice.ID)
	assert.True(t, models.HasCode(err, models.CodeSelfSubscription))

	_, err = s.subs.Subscribe(ctx, alice.ID, 999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = s.subs.Subscribe(ctx, 999, 999)
	assert.True(t, models.HasCode(err, models.CodeNotFound), "missing target is reported before self subscription")

	_, err = s.subs.Unsubscribe(ctx, alice.ID, 999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = s.subs.Subscribe(ctx, 0, alice.ID)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))

	var edges int64
	require.NoError(t, s.db.Model(&models.Subscription{}).Count(&edges).Error)
	assert.Zero(t, edges)
}

func TestSubscribe_ConcurrentCallsCreateOneEdge(t *testing.T) {
	const workers = 8
	s := newServicesWithDB(t, testutil.NewConcurrentTestDB(t, workers))
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")

	outcomes := make([]models.SubscriptionOutcome, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.subs.Subscribe(ctx, alice.ID, bob.ID)
			errs[i] = err
			if res != nil {
				outcomes[i] = res.Outcome
			}
		}(i)
	}
	wg.Wait()

	counts := map[models.SubscriptionOutcome]int{}
	for i, outcome := range outcomes {
		require.NoError(t, errs[i])
		counts[outcome]++
	}
	assert.Equal(t, map[models.SubscriptionOutcome]int{
		models.OutcomeSubscribed:        1,
		models.OutcomeAlreadySubscribed: workers - 1,
	}, counts)

	var edges int64
	require.NoError(t, s.db.Model(&models.Subscription{}).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)
	assert.Len(t, s.notifier.Events(), 1)
}

func TestEditAndDelete_ForbiddenLeavesPostUnchanged(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	mallory := testutil.CreateUser(t, s.db, "mallory")
	post, err := s.posts.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "original"})
	require.NoError(t, err)

	text := "defaced"
	_, err = s.posts.UpdatePost(ctx, UpdatePostInput{ActorID: mallory.ID, PostID: post.ID, Text: &text})
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	err = s.posts.DeletePost(ctx, mallory.ID, post.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	got, err := s.posts.GetPost(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Text)
	assert.Equal(t, post.UpdatedAt.Unix(), got.UpdatedAt.Unix())

	_, err = s.posts.UpdatePost(ctx, UpdatePostInput{ActorID: alice.ID, PostID: 999, Text: &text})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestEditAndDelete_ByAuthor(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	post, err := s.posts.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "first draft"})
	require.NoError(t, err)

	blank := "   "
	_, err = s.posts.UpdatePost(ctx, UpdatePostInput{ActorID: alice.ID, PostID: post.ID, Text: &blank})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	text := "second draft"
	updated, err := s.posts.UpdatePost(ctx, UpdatePostInput{ActorID: alice.ID, PostID: post.ID, Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "second draft", updated.Text)

	require.NoError(t, s.posts.DeletePost(ctx, alice.ID, post.ID))
	_, err = s.posts.GetPost(ctx, post.ID, 0)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestEditPost_RefreshesUpdatedAt(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	post := testutil.CreatePost(t, s.db, alice, "stale", time.Now().Add(-time.Hour))

	text := "fresh"
	updated, err := s.posts.UpdatePost(ctx, UpdatePostInput{ActorID: alice.ID, PostID: post.ID, Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "fresh", updated.Text)
	assert.True(t, updated.UpdatedAt.After(post.UpdatedAt.Add(30*time.Minute)), "updated_at %v not refreshed from %v", updated.UpdatedAt, post.UpdatedAt)
	assert.Equal(t, post.CreatedAt.Unix(), updated.CreatedAt.Unix())
}

func TestCreatePost_Validation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s.db, "alice")

	tests := []struct {
		name     string
		authorID uint
		text     string
		code     string
	}{
		{name: "anonymous", authorID: 0, text: "hi", code: models.CodeUnauthorized},
		{name: "blank", authorID: alice.ID, text: " \n\t ", code: models.CodeValidation},
		{name: "too long", authorID: alice.ID, text: strings.Repeat("ü", 1001), code: models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.posts.CreatePost(ctx, CreatePostInput{AuthorID: tt.authorID, Text: tt.text})
			assert.True(t, models.HasCode(err, tt.code), "got %v", err)
		})
	}

	post, err := s.posts.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: strings.Repeat("ü", 1000)})
	require.NoError(t, err)
	assert.Equal(t, 1000, len([]rune(post.Text)))
}

func TestCreatePost_WithImageAndNotifications(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")
	testutil.Subscribe(t, s.db, bob, alice)

	post, err := s.posts.CreatePost(ctx, CreatePostInput{
		AuthorID: alice.ID,
		Text:     "look",
		Image:    &ImageUpload{Filename: "a.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 4, 4)},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(post.Image, "posts/"))
	assert.True(t, strings.HasSuffix(post.Image, ".png"))
	assert.Equal(t, "/media/"+post.Image, post.ImageURL)
	assert.Equal(t, []string{post.Image}, s.store.Keys())

	events := s.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, publishedEvent{kind: "post_created", recipient: bob.ID, actor: alice.ID, postID: post.ID, username: "alice"}, events[0])
}

func TestCreatePost_InsertFailureRemovesBlob(t *testing.T) {
	store := testutil.NewMemoryStorage()
	repo := noopPostRepo()
	repo.createFn = func(context.Context, *models.Post) error {
		return models.NewInternalError(assert.AnError)
	}
	svc := NewPostService(repo, nil, NewImageService(store, nil), nil)

	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 1,
		Text:     "with image",
		Image:    &ImageUpload{Content: testutil.TinyPNG(t, 2, 2)},
	})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeInternal))
	assert.Empty(t, store.Keys())
}

func TestCreatePost_StorageFailure(t *testing.T) {
	store := testutil.NewMemoryStorage()
	store.WriteErr = testutil.ErrStorageDown
	created := false
	repo := noopPostRepo()
	repo.createFn = func(context.Context, *models.Post) error {
		created = true
		return nil
	}
	svc := NewPostService(repo, nil, NewImageService(store, nil), nil)

	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 1,
		Text:     "with image",
		Image:    &ImageUpload{Content: testutil.TinyPNG(t, 2, 2)},
	})
	assert.True(t, models.HasCode(err, models.CodeInternal))
	assert.False(t, created)
}

func TestUpdatePost_ReplacesImage(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s.db, "alice")

	post, err := s.posts.CreatePost(ctx, CreatePostInput{
		AuthorID: alice.ID,
		Text:     "v1",
		Image:    &ImageUpload{Content: testutil.TinyPNG(t, 3, 3)},
	})
	require.NoError(t, err)
	oldKey := post.Image

	updated, err := s.posts.UpdatePost(ctx, UpdatePostInput{
		ActorID: alice.ID,
		PostID:  post.ID,
		Image:   &ImageUpload{Content: testutil.TinyPNG(t, 5, 5)},
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, updated.Image)
	assert.Equal(t, "v1", updated.Text)
	assert.Equal(t, []string{updated.Image}, s.store.Keys())
}

func TestComments_DeleteRules(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")
	post := testutil.CreatePost(t, s.db, alice, "post", time.Now())

	comment, err := s.comments.AddComment(ctx, bob.ID, post.ID, "  nice  ")
	require.NoError(t, err)
	assert.Equal(t, "nice", comment.Text)
	assert.Equal(t, "bob", comment.Author.Username)

	_, err = s.comments.AddComment(ctx, bob.ID, 999, "orphan")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	err = s.comments.DeleteComment(ctx, alice.ID, comment.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	require.NoError(t, s.comments.DeleteComment(ctx, bob.ID, comment.ID))
	err = s.comments.DeleteComment(ctx, bob.ID, comment.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = s.comments.ListComments(ctx, 999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestProfileAndExplore(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")
	carol := testutil.CreateUser(t, s.db, "carol")
	testutil.Subscribe(t, s.db, bob, alice)
	testutil.Subscribe(t, s.db, carol, alice)
	testutil.Subscribe(t, s.db, alice, carol)
	testutil.CreatePost(t, s.db, alice, "one", time.Now().Add(-time.Minute))
	newest := testutil.CreatePost(t, s.db, alice, "two", time.Now())

	profile, err := s.feed.Profile(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.User.Username)
	assert.True(t, profile.IsSubscribed)
	assert.Equal(t, int64(2), profile.PostsCount)
	assert.Equal(t, int64(2), profile.SubscribersCount)
	assert.Equal(t, int64(1), profile.SubscriptionsCount)
	require.Len(t, profile.Posts, 2)
	assert.Equal(t, newest.ID, profile.Posts[0].ID)

	_, err = s.feed.Profile(ctx, bob.ID, 999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	_, err = s.feed.Profile(ctx, 0, alice.ID)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))

	explore, err := s.feed.Explore(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, explore, 2)
	assert.Equal(t, "alice", explore[0].Username)
	require.NotNil(t, explore[0].IsSubscribed)
	assert.True(t, *explore[0].IsSubscribed)
	require.NotNil(t, explore[1].IsSubscribed)
	assert.False(t, *explore[1].IsSubscribed)

	anon, err := s.feed.Explore(ctx, 0)
	require.NoError(t, err)
	require.Len(t, anon, 3)
	for _, u := range anon {
		assert.Nil(t, u.IsSubscribed)
	}

	subscribers, err := s.feed.Subscribers(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, subscribers, 2)
	subscriptions, err := s.feed.Subscriptions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, subscriptions, 1)
	assert.Equal(t, carol.ID, subscriptions[0].User.ID)
}

func TestPage_Normalize(t *testing.T) {
	assert.Equal(t, Page{Limit: 100, Offset: 0}, Page{Limit: 500, Offset: -3}.normalize())
	assert.Equal(t, Page{}, Page{Limit: -1}.normalize())
	assert.Equal(t, Page{Limit: 20, Offset: 40}, Page{Limit: 20, Offset: 40}.normalize())
}
