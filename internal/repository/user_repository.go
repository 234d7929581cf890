package repository

import (
	"errors"
	"fmt"

	"github.com/yukikurage/taskpick-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user. A unique violation is reported as ErrDuplicateID
// when the id is taken and as ErrDuplicateEmail otherwise.
func (r *GormUserRepository) Create(user *models.User) error {
	err := r.db.Create(user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return translateError(err)
	}

	var count int64
	if cerr := r.db.Model(&models.User{}).Where("id = ?", user.ID).Count(&count).Error; cerr != nil {
		return translateError(cerr)
	}
	if count > 0 {
		return ErrDuplicateID
	}
	return ErrDuplicateEmail
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// Update overwrites a user's profile and capability fields
func (r *GormUserRepository) Update(user *models.User) error {
	result := r.db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Select("email", "password_hash", "name", "is_mega_user", "assistant_on", "access_requested").
		Updates(user)
	if result.Error != nil {
		return translateError(result.Error)
	}
	return nil
}

// Delete removes a user and their tasks in a transaction
func (r *GormUserRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&models.User{})
		if result.Error != nil {
			return fmt.Errorf("delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
}

// translateError maps gorm errors onto the repository sentinels.
// The DB must be opened with TranslateError for ErrDuplicatedKey to appear.
func translateError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateEmail
	default:
		return err
	}
}
