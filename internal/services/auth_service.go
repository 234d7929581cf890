package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/yukikurage/taskpick-api/internal/auth"
	"github.com/yukikurage/taskpick-api/internal/constants"
	"github.com/yukikurage/taskpick-api/internal/models"
	"github.com/yukikurage/taskpick-api/internal/repository"
	"github.com/yukikurage/taskpick-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken           = errors.New("email already exists")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrPasswordTooLong      = errors.New("password too long")
	ErrNameTooLong          = errors.New("name too long")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToIssueToken   = errors.New("failed to issue token")
	// ErrPersistence marks failures of the underlying store.
	ErrPersistence = errors.New("storage failure")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	issuer   *auth.TokenIssuer
	locks    *utils.KeyedMutex
}

// NewAuthService creates a new AuthService. locks must be the same per-user
// lock set the UserService and TaskService use.
func NewAuthService(userRepo repository.UserRepository, issuer *auth.TokenIssuer, locks *utils.KeyedMutex) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		issuer:   issuer,
		locks:    locks,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// SigninInput holds the credentials for authentication.
type SigninInput struct {
	Email    string
	Password string
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User  *models.User
	Token string
}

// Signup creates a new user and issues a token for it.
func (s *AuthService) Signup(input SignupInput) (*AuthResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if len(name) > constants.MaxNameLength {
		return nil, ErrNameTooLong
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrRecordNotFound) {
		return nil, persistenceError("check email", err)
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, persistenceError("create user", err)
	}

	return s.withToken(user)
}

// Signin verifies credentials and issues a token.
func (s *AuthService) Signin(input SigninInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceError("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.withToken(user)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id string) (*models.User, error) {
	return findUser(s.userRepo, id)
}

// Authorize returns the capability flags of the user.
func (s *AuthService) Authorize(id string) (models.Capabilities, error) {
	user, err := findUser(s.userRepo, id)
	if err != nil {
		return models.Capabilities{}, err
	}
	return user.Capabilities(), nil
}

// RequestAssistant records that the user asked for assistant access.
func (s *AuthService) RequestAssistant(id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	user, err := findUser(s.userRepo, id)
	if err != nil {
		return err
	}
	if user.AccessRequested {
		return nil
	}

	user.AccessRequested = true
	if err := s.userRepo.Update(user); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return persistenceError("update user", err)
	}
	return nil
}

func (s *AuthService) withToken(user *models.User) (*AuthResult, error) {
	token, err := s.issuer.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToIssueToken, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func findUser(repo repository.UserRepository, id string) (*models.User, error) {
	user, err := repo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceError("find user", err)
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidEmail)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < constants.MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > constants.MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", ErrFailedToHashPassword
	}
	return string(hash), nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
