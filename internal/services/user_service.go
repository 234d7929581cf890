package services

import (
	"errors"
	"strings"

	"github.com/yukikurage/taskpick-api/internal/constants"
	"github.com/yukikurage/taskpick-api/internal/models"
	"github.com/yukikurage/taskpick-api/internal/repository"
	"github.com/yukikurage/taskpick-api/internal/utils"
)

// UserService handles profile reads and self-service changes.
type UserService struct {
	userRepo repository.UserRepository
	locks    *utils.KeyedMutex
}

// NewUserService creates a new UserService. locks is shared with TaskService
// so that account deletion cannot interleave with task writes.
func NewUserService(userRepo repository.UserRepository, locks *utils.KeyedMutex) *UserService {
	return &UserService{
		userRepo: userRepo,
		locks:    locks,
	}
}

// UserPatch lists the profile fields a user may change. Nil means unchanged.
type UserPatch struct {
	Name        *string
	Email       *string
	Password    *string
	AssistantOn *bool
}

// GetUser returns the user
func (s *UserService) GetUser(id string) (*models.User, error) {
	return findUser(s.userRepo, id)
}

// UpdateUser applies patch to the user's profile
func (s *UserService) UpdateUser(id string, patch UserPatch) (*models.User, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	user, err := findUser(s.userRepo, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if len(name) > constants.MaxNameLength {
			return nil, ErrNameTooLong
		}
		user.Name = name
	}
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			if _, err := s.userRepo.FindByEmail(email); err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, repository.ErrRecordNotFound) {
				return nil, persistenceError("check email", err)
			}
		}
		user.Email = email
	}
	if patch.Password != nil {
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if patch.AssistantOn != nil {
		user.AssistantOn = *patch.AssistantOn
	}

	if err := s.userRepo.Update(user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, persistenceError("update user", err)
		}
	}

	return user, nil
}

// DeleteUser removes the user and every task they own
func (s *UserService) DeleteUser(id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.userRepo.Delete(id); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return persistenceError("delete user", err)
	}
	return nil
}
