// Package bootstrap opens the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"feedline/internal/cache"
	"feedline/internal/config"
	"feedline/internal/database"
	"feedline/internal/middleware"
	"feedline/internal/models"
	"feedline/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedFixture names a built-in fixture applied at startup in development.
	SeedFixture string
}

// InitRuntime connects to the database and Redis and optionally applies a
// demo fixture. The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	if err := seedDevFixture(context.Background(), cfg, db, opts.SeedFixture); err != nil {
		return nil, nil, fmt.Errorf("failed to seed development fixture: %w", err)
	}

	return db, cache.GetClient(), nil
}

func seedDevFixture(ctx context.Context, cfg *config.Config, db *gorm.DB, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	// Only an empty database is seeded so restarts do not duplicate posts.
	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	fixture, err := seed.BuiltinFixture(name)
	if err != nil {
		return err
	}
	summary, err := seed.NewSeeder(db, 0).ApplyFixture(ctx, fixture)
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "development fixture applied",
		"fixture", name,
		"posts", summary.Posts,
		"subscriptions", summary.Subscriptions,
	)
	return nil
}
