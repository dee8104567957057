package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

type ProjectHandler struct {
	projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type projectMemberRequest struct {
	UserID uint64             `json:"userId" binding:"required"`
	Role   models.ProjectRole `json:"role" binding:"required"`
}

func toMemberInputs(reqs []projectMemberRequest) []services.ProjectMemberInput {
	out := make([]services.ProjectMemberInput, len(reqs))
	for i, r := range reqs {
		out[i] = services.ProjectMemberInput{UserID: r.UserID, Role: r.Role}
	}
	return out
}

// CreateProject creates a project in the workspace of the route
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := idParam(c, middleware.WorkspaceIDParam)
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		Title       string                 `json:"title" binding:"required"`
		Description string                 `json:"description"`
		Status      models.ProjectStatus   `json:"status"`
		StartDate   *time.Time             `json:"startDate"`
		DueDate     *time.Time             `json:"dueDate"`
		Tags        string                 `json:"tags"`
		Members     []projectMemberRequest `json:"members" binding:"dive"`
	}

	var req CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projects.CreateProject(c.Request.Context(), userID, workspaceID, services.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		Members:     toMemberInputs(req.Members),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects returns the projects of the workspace of the route
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := idParam(c, middleware.WorkspaceIDParam)
	if !ok {
		return
	}

	projects, err := h.projects.ListProjects(c.Request.Context(), userID, workspaceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTOs(projects))
}

// GetProject returns a project with its members
func (h *ProjectHandler) GetProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId")
	if !ok {
		return
	}

	project, err := h.projects.GetProject(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// UpdateProject changes project fields and member roles
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId")
	if !ok {
		return
	}

	type UpdateProjectRequest struct {
		Title       *string                `json:"title"`
		Description *string                `json:"description"`
		Status      *models.ProjectStatus  `json:"status"`
		StartDate   *time.Time             `json:"startDate"`
		DueDate     *time.Time             `json:"dueDate"`
		Tags        *string                `json:"tags"`
		Members     []projectMemberRequest `json:"members" binding:"dive"`
	}

	var req UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projects.UpdateProject(c.Request.Context(), userID, projectID, services.UpdateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		Members:     toMemberInputs(req.Members),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}
