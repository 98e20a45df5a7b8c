package repository

import (
	"context"
	"errors"

	"feedline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository defines like persistence operations.
type LikeRepository interface {
	Toggle(ctx context.Context, postID, userID uint) (models.LikeResult, error)
	IsLiked(ctx context.Context, postID, userID uint) (bool, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new LikeRepository.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Toggle removes the viewer's like if present, otherwise adds one, and
// returns the resulting state with a fresh count. The delete runs first so
// two concurrent toggles by the same user cannot both insert: the unique
// (post_id, user_id) index absorbs the loser through ON CONFLICT DO NOTHING.
func (r *likeRepository) Toggle(ctx context.Context, postID, userID uint) (models.LikeResult, error) {
	var result models.LikeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			like := models.Like{PostID: postID, UserID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&like).Error; err != nil {
				return err
			}
			result.Liked = true
		}
		return tx.Model(&models.Like{}).Where("post_id = ?", postID).Count(&result.LikesCount).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return models.LikeResult{}, models.NewNotFoundError("Post", postID)
		}
		return models.LikeResult{}, models.NewInternalError(err)
	}
	return result, nil
}

func (r *likeRepository) IsLiked(ctx context.Context, postID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
