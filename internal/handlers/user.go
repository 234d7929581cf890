package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpick-api/internal/auth"
	"github.com/yukikurage/taskpick-api/internal/dto"
	apierrors "github.com/yukikurage/taskpick-api/internal/errors"
	"github.com/yukikurage/taskpick-api/internal/middleware"
	"github.com/yukikurage/taskpick-api/internal/services"
)

type identityClearer interface {
	Clear(c *gin.Context) error
}

// UserHandler serves the caller's own profile.
type UserHandler struct {
	userService *services.UserService
	clearer     identityClearer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService, resolver auth.IdentityResolver) *UserHandler {
	clearer, _ := resolver.(identityClearer)
	return &UserHandler{
		userService: userService,
		clearer:     clearer,
	}
}

// GetMe returns the caller's profile.
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	user, err := h.userService.GetUser(userID)
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateMe applies a partial profile update. Capability flags other than
// assistantOn are server-managed and ignored.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	type UpdateUserRequest struct {
		Name        *string `json:"name"`
		Email       *string `json:"email"`
		Password    *string `json:"password"`
		AssistantOn *bool   `json:"assistantOn"`
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateUser(userID, services.UserPatch{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		AssistantOn: req.AssistantOn,
	})
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteMe removes the caller's account and all of their tasks.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	if err := h.userService.DeleteUser(userID); err != nil {
		respondUserError(c, err)
		return
	}

	if h.clearer != nil {
		if err := h.clearer.Clear(c); err != nil {
			slog.Warn("failed to clear session", slog.String("error", err.Error()))
		}
	}

	c.Status(http.StatusNoContent)
}

func respondUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, err.Error())
	default:
		respondAuthError(c, err)
	}
}
