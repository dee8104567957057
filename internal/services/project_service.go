package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound        = apierrors.New(apierrors.KindNotFound, "project not found")
	ErrInvalidProjectTitle    = apierrors.New(apierrors.KindValidation, fmt.Sprintf("title must be at least %d characters", constants.MinProjectTitleLength))
	ErrInvalidProjectStatus   = apierrors.New(apierrors.KindValidation, "invalid project status")
	ErrInvalidProjectRole     = apierrors.New(apierrors.KindValidation, "project role must be one of manager, contributor, viewer")
	ErrInvalidProjectDates    = apierrors.New(apierrors.KindValidation, "due date must not be before start date")
	ErrProjectMemberNotInWS   = apierrors.New(apierrors.KindValidation, "project members must be members of the workspace")
	ErrViewerCannotContribute = apierrors.New(apierrors.KindForbidden, "viewers cannot modify workspace content")
	ErrProjectPermission      = apierrors.New(apierrors.KindForbidden, "only project managers and workspace admins can modify this project")
)

// ProjectService handles project business logic. Authorization goes through
// the workspace roster.
type ProjectService struct {
	projects   repository.ProjectRepository
	workspaces *WorkspaceService
	activity   *ActivityService
	now        func() time.Time
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects repository.ProjectRepository, workspaces *WorkspaceService, activity *ActivityService) *ProjectService {
	return &ProjectService{
		projects:   projects,
		workspaces: workspaces,
		activity:   activity,
		now:        time.Now,
	}
}

// ProjectMemberInput is one requested project member.
type ProjectMemberInput struct {
	UserID uint64
	Role   models.ProjectRole
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Title       string
	Description string
	Status      models.ProjectStatus
	StartDate   *time.Time
	DueDate     *time.Time
	Tags        string
	Members     []ProjectMemberInput
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Title       *string
	Description *string
	Status      *models.ProjectStatus
	StartDate   *time.Time
	DueDate     *time.Time
	Tags        *string
	Members     []ProjectMemberInput
}

// ProjectAccess is a project together with the caller's standing in it.
type ProjectAccess struct {
	Project       *models.Project
	WorkspaceRole models.WorkspaceRole
	ProjectRole   models.ProjectRole
}

// CanManage reports whether the caller may change project settings.
func (a *ProjectAccess) CanManage() bool {
	return a.WorkspaceRole.CanManageMembers() || a.ProjectRole == models.ProjectRoleManager
}

// CreateProject creates a project in a workspace. The caller becomes a
// manager unless listed with another role.
func (s *ProjectService) CreateProject(ctx context.Context, requesterID, workspaceID uint64, input CreateProjectInput) (*models.Project, error) {
	_, member, err := s.workspaces.Authorize(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !member.Role.CanContribute() {
		return nil, ErrViewerCannotContribute
	}

	title := strings.TrimSpace(input.Title)
	if len([]rune(title)) < constants.MinProjectTitleLength {
		return nil, ErrInvalidProjectTitle
	}
	if input.Status == "" {
		input.Status = models.ProjectStatusPlanning
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidProjectStatus
	}
	if err := validateDates(input.StartDate, input.DueDate); err != nil {
		return nil, err
	}

	members, err := s.resolveMembers(ctx, requesterID, workspaceID, input.Members)
	if err != nil {
		return nil, err
	}
	if !containsUser(members, requesterID) {
		members = append(members, models.ProjectMember{UserID: requesterID, Role: models.ProjectRoleManager})
	}

	project := &models.Project{
		WorkspaceID: workspaceID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
		Tags:        normalizeTags(input.Tags),
		CreatorID:   requesterID,
		Members:     members,
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, apierrors.Internal("failed to create project", err)
	}

	s.activity.Record(ctx, requesterID, models.ActionCreatedProject, models.ResourceProject, project.ID, project.Title)
	return project, nil
}

// ListProjects returns the projects of a workspace, newest first.
func (s *ProjectService) ListProjects(ctx context.Context, requesterID, workspaceID uint64) ([]models.Project, error) {
	if _, _, err := s.workspaces.Authorize(ctx, requesterID, workspaceID); err != nil {
		return nil, err
	}

	projects, err := s.projects.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, apierrors.Internal("failed to list projects", err)
	}
	return projects, nil
}

// Access loads a project and checks that the caller belongs to its workspace.
func (s *ProjectService) Access(ctx context.Context, requesterID, projectID uint64, preload ...string) (*ProjectAccess, error) {
	project, err := s.projects.FindByID(ctx, projectID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, apierrors.Internal("failed to find project", err)
	}

	_, member, err := s.workspaces.Authorize(ctx, requesterID, project.WorkspaceID)
	if err != nil {
		if errors.Is(err, ErrWorkspaceNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	access := &ProjectAccess{Project: project, WorkspaceRole: member.Role}
	pm, err := s.projects.FindMember(ctx, projectID, requesterID)
	switch {
	case err == nil:
		access.ProjectRole = pm.Role
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apierrors.Internal("failed to find project member", err)
	}

	return access, nil
}

// GetProject returns a project with its members and tasks.
func (s *ProjectService) GetProject(ctx context.Context, requesterID, projectID uint64) (*models.Project, error) {
	access, err := s.Access(ctx, requesterID, projectID, "Members", "Members.User")
	if err != nil {
		return nil, err
	}
	return access.Project, nil
}

// UpdateProject changes project fields. Project managers and workspace
// owners and admins only.
func (s *ProjectService) UpdateProject(ctx context.Context, requesterID, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	access, err := s.Access(ctx, requesterID, projectID)
	if err != nil {
		return nil, err
	}
	if !access.CanManage() {
		return nil, ErrProjectPermission
	}
	project := access.Project

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if len([]rune(title)) < constants.MinProjectTitleLength {
			return nil, ErrInvalidProjectTitle
		}
		project.Title = title
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidProjectStatus
		}
		project.Status = *input.Status
	}
	if input.StartDate != nil {
		project.StartDate = input.StartDate
	}
	if input.DueDate != nil {
		project.DueDate = input.DueDate
	}
	if err := validateDates(project.StartDate, project.DueDate); err != nil {
		return nil, err
	}
	if input.Tags != nil {
		project.Tags = normalizeTags(*input.Tags)
	}

	var members []models.ProjectMember
	if len(input.Members) > 0 {
		members, err = s.resolveMembers(ctx, requesterID, project.WorkspaceID, input.Members)
		if err != nil {
			return nil, err
		}
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, apierrors.Internal("failed to update project", err)
	}
	for i := range members {
		members[i].ProjectID = project.ID
	}
	if err := s.projects.UpsertMembers(ctx, members); err != nil {
		return nil, apierrors.Internal("failed to update project members", err)
	}

	s.activity.Record(ctx, requesterID, models.ActionUpdatedProject, models.ResourceProject, project.ID, project.Title)
	return s.GetProject(ctx, requesterID, project.ID)
}

// resolveMembers validates requested project members against the workspace roster.
func (s *ProjectService) resolveMembers(ctx context.Context, requesterID, workspaceID uint64, inputs []ProjectMemberInput) ([]models.ProjectMember, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	details, err := s.workspaces.GetWorkspaceDetails(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}
	roster := make(map[uint64]struct{}, len(details.Members))
	for _, m := range details.Members {
		roster[m.UserID] = struct{}{}
	}

	seen := make(map[uint64]struct{}, len(inputs))
	members := make([]models.ProjectMember, 0, len(inputs))
	for _, in := range inputs {
		if !in.Role.Valid() {
			return nil, ErrInvalidProjectRole
		}
		if _, ok := roster[in.UserID]; !ok {
			return nil, ErrProjectMemberNotInWS
		}
		if _, dup := seen[in.UserID]; dup {
			continue
		}
		seen[in.UserID] = struct{}{}
		members = append(members, models.ProjectMember{UserID: in.UserID, Role: in.Role})
	}
	return members, nil
}

func validateDates(start, due *time.Time) error {
	if start != nil && due != nil && due.Before(*start) {
		return ErrInvalidProjectDates
	}
	return nil
}

func containsUser(members []models.ProjectMember, userID uint64) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// normalizeTags trims each comma separated tag and drops empty ones.
func normalizeTags(tags string) string {
	parts := strings.Split(tags, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
