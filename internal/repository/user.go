// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"feedline/internal/models"
	"feedline/internal/validation"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	FirstOrCreate(ctx context.Context, username string) (*models.User, error)
	ListExcept(ctx context.Context, excludeID uint) ([]*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", username)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// FirstOrCreate returns the user with username, inserting it if missing.
// Used by the seeder and the dev token tool; accounts are otherwise owned
// by the external auth system.
func (r *userRepository) FirstOrCreate(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, &models.AppError{Code: models.CodeValidation, Message: "Invalid username", Err: err}
	}
	user := models.User{Username: username}
	if err := r.db.WithContext(ctx).Where(models.User{Username: username}).FirstOrCreate(&user).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// ListExcept returns every user ordered by username, skipping excludeID.
// An excludeID of 0 skips nobody.
func (r *userRepository) ListExcept(ctx context.Context, excludeID uint) ([]*models.User, error) {
	var users []*models.User
	q := r.db.WithContext(ctx).Order("username ASC")
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
