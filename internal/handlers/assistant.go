package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpick-api/internal/dto"
	apierrors "github.com/yukikurage/taskpick-api/internal/errors"
	"github.com/yukikurage/taskpick-api/internal/middleware"
	"github.com/yukikurage/taskpick-api/internal/services"
)

// AssistantHandler serves task picks.
type AssistantHandler struct {
	assistantService *services.AssistantService
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(assistantService *services.AssistantService) *AssistantHandler {
	return &AssistantHandler{
		assistantService: assistantService,
	}
}

// Pick asks the assistant which unresolved tasks to do next.
// The call is bound to the request context, so a client disconnect cancels it.
func (h *AssistantHandler) Pick(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.MissingIdentity(c, "")
		return
	}

	var req dto.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	pick, err := h.assistantService.Pick(c.Request.Context(), userID, req.Messages)
	if err != nil {
		respondAssistantError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAssistantResponse(*pick))
}

func respondAssistantError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrNoUnresolvedTasks):
		apierrors.NotFound(c, "No unresolved tasks")
	case errors.Is(err, services.ErrUpstream):
		_ = c.Error(err)
		apierrors.UpstreamError(c, "")
	default:
		respondUnexpected(c, err)
	}
}
