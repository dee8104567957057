package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// WorkspaceIDParam is the route parameter holding the workspace ID.
const WorkspaceIDParam = "workspaceId"

// RequireWorkspaceMember checks that the caller belongs to the workspace in
// the route and stores the workspace and roster entry in the context.
func RequireWorkspaceMember(workspaces *services.WorkspaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, err := strconv.ParseUint(c.Param(WorkspaceIDParam), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid workspace ID")
			return
		}

		userID, ok := GetUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		ws, member, err := workspaces.Authorize(c.Request.Context(), userID, workspaceID)
		if err != nil {
			apierrors.Respond(c, err)
			return
		}

		c.Set(constants.ContextKeyWorkspace, ws)
		c.Set(constants.ContextKeyMember, member)
		c.Next()
	}
}

// RequireWorkspaceRole must run after RequireWorkspaceMember. It rejects
// callers whose workspace role is not listed.
func RequireWorkspaceRole(roles ...models.WorkspaceRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		member, ok := GetWorkspaceMember(c)
		if !ok {
			apierrors.Forbidden(c, "Workspace access required")
			return
		}

		for _, role := range roles {
			if member.Role == role {
				c.Next()
				return
			}
		}
		apierrors.Respond(c, services.ErrInsufficientRole)
	}
}

// GetWorkspaceMember returns the roster entry set by RequireWorkspaceMember.
func GetWorkspaceMember(c *gin.Context) (*models.WorkspaceMember, bool) {
	v, exists := c.Get(constants.ContextKeyMember)
	if !exists {
		return nil, false
	}
	member, ok := v.(*models.WorkspaceMember)
	return member, ok
}
