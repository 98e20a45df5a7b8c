package database

import "feedline/internal/models"

// PersistentModels lists every model with a backing table, parents first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Subscription{},
	}
}
