// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"feedline/internal/database"
	"feedline/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// NewTestDB opens an isolated in-memory SQLite database with foreign keys
// enforced and the full schema migrated.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:feedline_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbCounter.Add(1))
	return openTestDB(t, dsn, 1)
}

// NewConcurrentTestDB opens a file-backed SQLite database in WAL mode that
// serves several connections at once. Writers wait on each other through the
// busy timeout, and transactions take the write lock when they begin.
func NewConcurrentTestDB(t testing.TB, maxConns int) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedline.db")
	dsn := "file:" + path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate"
	return openTestDB(t, dsn, maxConns)
}

func openTestDB(t testing.TB, dsn string, maxConns int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts a user with the given username.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a post for author with an explicit creation time so
// ordering assertions are deterministic.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, text string, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{AuthorID: author.ID, Text: text, CreatedAt: createdAt, UpdatedAt: createdAt}
	require.NoError(t, db.Omit("Author").Create(post).Error)
	return post
}

// Subscribe inserts a subscription edge from subscriber to target.
func Subscribe(t testing.TB, db *gorm.DB, subscriber, target *models.User) {
	t.Helper()
	require.NoError(t, db.Create(&models.Subscription{SubscriberID: subscriber.ID, TargetID: target.ID}).Error)
}
