package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpick-api/internal/auth"
	"github.com/yukikurage/taskpick-api/internal/constants"
	"github.com/yukikurage/taskpick-api/internal/dto"
	apierrors "github.com/yukikurage/taskpick-api/internal/errors"
	"github.com/yukikurage/taskpick-api/internal/middleware"
	"github.com/yukikurage/taskpick-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	binder      auth.IdentityBinder
}

// NewAuthHandler creates a new AuthHandler. When the resolver keeps server-side
// state, signup and signin also bind the new identity to it.
func NewAuthHandler(authService *services.AuthService, resolver auth.IdentityResolver) *AuthHandler {
	binder, _ := resolver.(auth.IdentityBinder)
	return &AuthHandler{
		authService: authService,
		binder:      binder,
	}
}

// Signup registers a new user and returns a token.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Signup(services.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, result)
}

// Signin authenticates a user and returns a token.
func (h *AuthHandler) Signin(c *gin.Context) {
	type SigninRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Signin(services.SigninInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, result)
}

// Validate confirms that the caller's identity belongs to an existing user.
func (h *AuthHandler) Validate(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	if _, err := h.authService.GetUser(userID); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ValidateResponse{Valid: true})
}

// Authorize returns the caller's capability flags.
func (h *AuthHandler) Authorize(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	caps, err := h.authService.Authorize(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, caps)
}

// RequestAssistant records the caller's request for assistant access.
func (h *AuthHandler) RequestAssistant(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	if err := h.authService.RequestAssistant(userID); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, "Access requested")
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, result *services.AuthResult) {
	if h.binder != nil {
		if err := h.binder.Bind(c, result.User.ID); err != nil {
			slog.Error("failed to save session", slog.String("error", err.Error()))
			apierrors.InternalError(c, "Failed to save session")
			return
		}
	}

	c.JSON(status, dto.AuthResponse{
		Token: result.Token,
		User:  dto.ToUserDTO(*result.User),
	})
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrPasswordTooLong):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at most %d characters", constants.MaxPasswordLength))
	case errors.Is(err, services.ErrNameTooLong):
		apierrors.BadRequest(c, fmt.Sprintf("Name must be at most %d characters", constants.MaxNameLength))
	case errors.Is(err, services.ErrInvalidEmail):
		apierrors.BadRequest(c, "Invalid email address")
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		respondUnexpected(c, err)
	}
}

// respondUnexpected logs err and answers 500, distinguishing storage failures.
func respondUnexpected(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, services.ErrPersistence) {
		slog.Error("storage failure",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.PersistenceError(c, "")
		return
	}

	slog.Error("unexpected error",
		slog.String("path", c.Request.URL.Path),
		slog.String("error", err.Error()),
	)
	apierrors.InternalError(c, "")
}
