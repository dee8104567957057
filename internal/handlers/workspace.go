package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// WorkspaceHandler serves workspaces, their roster and invitations.
type WorkspaceHandler struct {
	workspaces *services.WorkspaceService
	stats      *services.StatsService
}

func NewWorkspaceHandler(workspaces *services.WorkspaceService, stats *services.StatsService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces, stats: stats}
}

type roleRequest struct {
	Role models.WorkspaceRole `json:"role" binding:"required"`
}

// CreateWorkspace creates a workspace owned by the caller
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	type CreateWorkspaceRequest struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Color       string `json:"color" binding:"required"`
	}

	var req CreateWorkspaceRequest
	if !bindJSON(c, &req) {
		return
	}

	ws, err := h.workspaces.CreateWorkspace(c.Request.Context(), userID, services.CreateWorkspaceInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorkspaceDTO(*ws))
}

// ListWorkspaces returns the workspaces the caller belongs to
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	memberships, err := h.workspaces.ListWorkspaces(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceWithRoleDTOs(memberships))
}

// GetWorkspace returns workspace details with the roster
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}

	details, err := h.workspaces.GetWorkspaceDetails(c.Request.Context(), userID, workspaceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDetailDTO(details))
}

// UpdateWorkspace changes name, description or color
func (h *WorkspaceHandler) UpdateWorkspace(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}

	type UpdateWorkspaceRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Color       *string `json:"color"`
	}

	var req UpdateWorkspaceRequest
	if !bindJSON(c, &req) {
		return
	}

	ws, err := h.workspaces.UpdateWorkspace(c.Request.Context(), userID, workspaceID, services.UpdateWorkspaceInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDTO(*ws))
}

// DeleteWorkspace removes a workspace with its projects and tasks
func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}

	if err := h.workspaces.DeleteWorkspace(c.Request.Context(), userID, workspaceID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStats returns the dashboard aggregates
func (h *WorkspaceHandler) GetStats(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}

	stats, err := h.stats.GetWorkspaceStats(c.Request.Context(), userID, workspaceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceStatsDTO(stats))
}

// GenerateInviteLink issues a signed invitation for a role
func (h *WorkspaceHandler) GenerateInviteLink(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}

	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}

	link, err := h.workspaces.GenerateInviteLink(c.Request.Context(), userID, workspaceID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.InvitationLinkResponse{
		InvitationLink: link.URL,
		Role:           link.Role,
		ExpiresAt:      link.ExpiresAt,
	})
}

// AcceptInvite joins the workspace named in a signed invitation
func (h *WorkspaceHandler) AcceptInvite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	type AcceptInviteRequest struct {
		Token string `json:"token" binding:"required"`
	}

	var req AcceptInviteRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.workspaces.AcceptInviteByToken(c.Request.Context(), userID, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAcceptInviteResponse(result))
}

// AcceptGeneratedInvite joins a workspace through its standing invite link
func (h *WorkspaceHandler) AcceptGeneratedInvite(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}

	result, err := h.workspaces.AcceptGeneratedInvite(c.Request.Context(), userID, workspaceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAcceptInviteResponse(result))
}

// JoinByInviteCode joins the workspace owning a standing invite code
func (h *WorkspaceHandler) JoinByInviteCode(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	type JoinRequest struct {
		InviteCode string `json:"inviteCode" binding:"required"`
	}

	var req JoinRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.workspaces.JoinByInviteCode(c.Request.Context(), userID, req.InviteCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAcceptInviteResponse(result))
}

// GetInviteLink returns the standing invite link
func (h *WorkspaceHandler) GetInviteLink(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}

	invite, err := h.workspaces.GetInviteLink(c.Request.Context(), userID, workspaceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStandingInviteResponse(invite))
}

// EnableInviteLink enables the standing invite link and rotates its code
func (h *WorkspaceHandler) EnableInviteLink(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}

	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}

	invite, err := h.workspaces.EnableInviteLink(c.Request.Context(), userID, workspaceID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStandingInviteResponse(invite))
}

// DisableInviteLink turns the standing invite link off
func (h *WorkspaceHandler) DisableInviteLink(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}

	if err := h.workspaces.DisableInviteLink(c.Request.Context(), userID, workspaceID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ChangeMemberRole sets the role of a roster entry
func (h *WorkspaceHandler) ChangeMemberRole(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}
	targetID, ok := idParam(c, "userId")
	if !ok {
		return
	}

	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.workspaces.ChangeRole(c.Request.Context(), userID, workspaceID, targetID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": member.UserID,
		"role":   member.Role,
	})
}

// RemoveMember removes a member from the workspace
func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}
	targetID, ok := idParam(c, "userId")
	if !ok {
		return
	}

	if err := h.workspaces.RemoveMember(c.Request.Context(), userID, workspaceID, targetID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// LeaveWorkspace removes the caller from the workspace
func (h *WorkspaceHandler) LeaveWorkspace(c *gin.Context) {
	userID, workspaceID, ok := workspaceRequest(c)
	if !ok {
		return
	}

	if err := h.workspaces.LeaveWorkspace(c.Request.Context(), userID, workspaceID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// workspaceRequest returns the caller and the workspace ID of the route.
func workspaceRequest(c *gin.Context) (uint64, uint64, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return 0, 0, false
	}
	workspaceID, ok := idParam(c, middleware.WorkspaceIDParam)
	if !ok {
		return 0, 0, false
	}
	return userID, workspaceID, true
}
