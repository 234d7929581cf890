package database

import (
	"gorm.io/gorm"
)

// OwnedBy restricts a task query to one user's list
func OwnedBy(userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// InListOrder sorts tasks the way the user created them
func InListOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
