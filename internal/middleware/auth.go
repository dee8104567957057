package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
)

// RequireAuth authenticates the caller with a bearer token, falling back to
// the session cookie set at login.
func RequireAuth(tokens *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				apierrors.Unauthorized(c, "Invalid authorization header")
				return
			}
			claims, err := tokens.ValidateToken(strings.TrimSpace(raw))
			if err != nil {
				apierrors.Unauthorized(c, "Invalid or expired token")
				return
			}
			c.Set(constants.ContextKeyUserID, claims.UserID)
			c.Next()
			return
		}

		session := sessions.Default(c)
		userID := session.Get(constants.ContextKeyUserID)
		if userID == nil {
			apierrors.Unauthorized(c, "")
			return
		}

		// Store user ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
