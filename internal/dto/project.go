package dto

import (
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// ProjectMemberDTO represents a project member
type ProjectMemberDTO struct {
	UserID uint64             `json:"userId"`
	User   *UserSummaryDTO    `json:"user,omitempty"`
	Role   models.ProjectRole `json:"role"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64               `json:"id"`
	WorkspaceID uint64               `json:"workspaceId"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	StartDate   *time.Time           `json:"startDate"`
	DueDate     *time.Time           `json:"dueDate"`
	Tags        []string             `json:"tags"`
	CreatorID   uint64               `json:"creatorId"`
	Members     []ProjectMemberDTO   `json:"members"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	members := make([]ProjectMemberDTO, len(project.Members))
	for i, m := range project.Members {
		members[i] = ProjectMemberDTO{
			UserID: m.UserID,
			User:   userSummary(m.User),
			Role:   m.Role,
		}
	}

	return ProjectDTO{
		ID:          project.ID,
		WorkspaceID: project.WorkspaceID,
		Title:       project.Title,
		Description: project.Description,
		Status:      project.Status,
		StartDate:   project.StartDate,
		DueDate:     project.DueDate,
		Tags:        splitTags(project.Tags),
		CreatorID:   project.CreatorID,
		Members:     members,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

// ToProjectDTOs converts a slice of projects
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = ToProjectDTO(p)
	}
	return out
}

func splitTags(tags string) []string {
	if tags == "" {
		return []string{}
	}
	return strings.Split(tags, ",")
}
