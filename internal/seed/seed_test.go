package seed

import (
	"context"
	"strings"
	"testing"

	"feedline/internal/models"
	"feedline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFixture_RejectsUnknownFields(t *testing.T) {
	_, err := ParseFixture(strings.NewReader("users: [a]\nbogus: true\n"))
	assert.Error(t, err)

	f, err := ParseFixture(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Users)
}

func TestBuiltinFixture(t *testing.T) {
	f, err := BuiltinFixture("demo")
	require.NoError(t, err)
	assert.Contains(t, f.Users, "alice")
	assert.NotEmpty(t, f.Posts)

	_, err = BuiltinFixture("missing")
	assert.Error(t, err)
}

func TestApplyFixture_Idempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	s := NewSeeder(db, 1)

	f, err := BuiltinFixture("demo")
	require.NoError(t, err)

	first, err := s.ApplyFixture(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Subscriptions)
	assert.Equal(t, 4, first.Likes)
	assert.Equal(t, 3, first.Comments)

	second, err := s.ApplyFixture(ctx, f)
	require.NoError(t, err)
	assert.Zero(t, second.Subscriptions, "edges already exist")

	var users, subs int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Subscription{}).Count(&subs).Error)
	assert.EqualValues(t, 4, users)
	assert.EqualValues(t, 4, subs)
}

func TestRun_CreatesConsistentData(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	s := NewSeeder(db, 42)

	summary, err := s.Run(ctx, Options{NumUsers: 5, NumPosts: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Users)
	assert.Equal(t, 10, summary.Posts)

	var posts, likes, comments, selfEdges int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	require.NoError(t, db.Model(&models.Subscription{}).Where("subscriber_id = target_id").Count(&selfEdges).Error)
	assert.EqualValues(t, 10, posts)
	assert.EqualValues(t, summary.Likes, likes)
	assert.EqualValues(t, summary.Comments, comments)
	assert.Zero(t, selfEdges)
}

func TestClearAll(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	s := NewSeeder(db, 7)

	_, err := s.Run(ctx, Options{NumUsers: 3, NumPosts: 4})
	require.NoError(t, err)
	require.NoError(t, s.ClearAll(ctx))

	var users, posts int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, users)
	assert.Zero(t, posts)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("  abc ", 10))
	assert.Equal(t, "éé", truncate("ééé", 2))
}
