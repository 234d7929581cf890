package middleware

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpick-api/internal/auth"
	"github.com/yukikurage/taskpick-api/internal/constants"
	apierrors "github.com/yukikurage/taskpick-api/internal/errors"
)

// RequireAuth resolves the caller's identity and stores the user ID in the context.
// A missing credential yields UNAUTHENTICATED, a rejected one INVALID_TOKEN.
func RequireAuth(resolver auth.IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := resolver.Resolve(c)
		if err != nil {
			if errors.Is(err, auth.ErrMissingIdentity) {
				apierrors.Unauthenticated(c, "")
			} else {
				slog.Debug("identity rejected",
					slog.String("mode", resolver.Mode()),
					slog.String("error", err.Error()),
				)
				apierrors.InvalidToken(c, "")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// RequireIdentity is RequireAuth for routes that report a missing identity as a bad request.
func RequireIdentity(resolver auth.IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := resolver.Resolve(c)
		if err != nil {
			if errors.Is(err, auth.ErrMissingIdentity) {
				apierrors.MissingIdentity(c, "")
			} else {
				apierrors.InvalidToken(c, "")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(constants.ContextKeyUserID)
	if userID == "" {
		return "", false
	}
	return userID, true
}
