// Command seed populates the database with demo data.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"feedline/internal/config"
	"feedline/internal/database"
	"feedline/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of random users to create")
	numPosts := flag.Int("posts", 100, "Number of random posts to create")
	shouldClean := flag.Bool("clean", false, "Delete existing data before seeding")
	fixture := flag.String("fixture", "", "Apply a built-in fixture by name (e.g. demo) instead of random data")
	fixtureFile := flag.String("fixture-file", "", "Apply a YAML fixture from disk")
	randSeed := flag.Int64("seed", 0, "Random seed (0 uses the current time)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, *randSeed)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var summary *seed.Summary
	switch {
	case *fixtureFile != "":
		f, err := os.Open(*fixtureFile)
		if err != nil {
			log.Fatalf("Failed to open fixture: %v", err)
		}
		parsed, err := seed.ParseFixture(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("Failed to parse fixture: %v", err)
		}
		summary, err = s.ApplyFixture(ctx, parsed)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	case *fixture != "":
		parsed, err := seed.BuiltinFixture(*fixture)
		if err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
		summary, err = s.ApplyFixture(ctx, parsed)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	default:
		summary, err = s.Run(ctx, seed.Options{NumUsers: *numUsers, NumPosts: *numPosts})
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("seeded users=%d posts=%d comments=%d likes=%d subscriptions=%d",
		summary.Users, summary.Posts, summary.Comments, summary.Likes, summary.Subscriptions)
}
