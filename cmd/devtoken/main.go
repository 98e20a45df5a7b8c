// Command devtoken mints a bearer token for a local user. Unknown users are
// created only with -create. It stands in for the external auth system
// during development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"feedline/internal/auth"
	"feedline/internal/config"
	"feedline/internal/database"
	"feedline/internal/models"
	"feedline/internal/repository"
)

func main() {
	username := flag.String("user", "", "Username to mint a token for")
	ttl := flag.Duration("ttl", auth.DefaultTokenTTL, "Token lifetime")
	create := flag.Bool("create", false, "Create the user if it does not exist")
	flag.Parse()

	if *username == "" {
		log.Fatal("usage: go run ./cmd/devtoken -user <username> [-ttl 24h] [-create]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("devtoken refuses to run with APP_ENV=production")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	user, err := resolveUser(context.Background(), repository.NewUserRepository(db), *username, *create)
	if err != nil {
		log.Fatalf("Failed to resolve user: %v", err)
	}

	token, err := auth.Issue(cfg.JWTSecret, user.ID, user.Username, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Println(token)
}

// resolveUser looks the user up by name and falls back to creating it when
// create is set.
func resolveUser(ctx context.Context, users repository.UserRepository, username string, create bool) (*models.User, error) {
	user, err := users.GetByUsername(ctx, username)
	if err == nil || !create || !models.HasCode(err, models.CodeNotFound) {
		return user, err
	}
	return users.FirstOrCreate(ctx, username)
}
