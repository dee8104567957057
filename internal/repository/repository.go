package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// TouchLastLogin records a successful login
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
}

// WorkspaceRepository defines the interface for workspace and roster data access
type WorkspaceRepository interface {
	// Create creates a workspace and its owner roster entry in one transaction
	Create(ctx context.Context, ws *models.Workspace, owner *models.WorkspaceMember) error

	// FindByID finds a workspace by ID
	FindByID(ctx context.Context, id uint64) (*models.Workspace, error)

	// FindByInviteCode finds a workspace by its standing invite code
	FindByInviteCode(ctx context.Context, code string) (*models.Workspace, error)

	// Update saves workspace fields
	Update(ctx context.Context, ws *models.Workspace) error

	// Delete deletes a workspace and everything scoped to it
	Delete(ctx context.Context, id uint64) error

	// AddMemberIfAbsent inserts the roster entry unless the user is already a
	// member. It reports whether a row was inserted. The check and the insert
	// are a single statement.
	AddMemberIfAbsent(ctx context.Context, member *models.WorkspaceMember) (bool, error)

	// UpdateMemberRole changes the role of an existing roster entry
	UpdateMemberRole(ctx context.Context, workspaceID, userID uint64, role models.WorkspaceRole) error

	// RemoveMember removes a roster entry
	RemoveMember(ctx context.Context, workspaceID, userID uint64) error

	// FindMember finds a specific roster entry
	FindMember(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceMember, error)

	// ListMembersByUserID lists the roster entries of a user with their workspaces
	ListMembersByUserID(ctx context.Context, userID uint64) ([]models.WorkspaceMember, error)

	// ListMembers lists the roster of a workspace with resolved users
	ListMembers(ctx context.Context, workspaceID uint64) ([]models.WorkspaceMember, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a project together with its member list
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a project by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Project, error)

	// ListByWorkspace lists the projects of a workspace, newest first
	ListByWorkspace(ctx context.Context, workspaceID uint64) ([]models.Project, error)

	// Update saves project fields
	Update(ctx context.Context, project *models.Project) error

	// FindMember finds a project member
	FindMember(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error)

	// UpsertMembers adds members or updates their roles
	UpsertMembers(ctx context.Context, members []models.ProjectMember) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(ctx context.Context, task *models.Task) error

	// AssignUsers assigns multiple users to a task
	AssignUsers(ctx context.Context, taskID uint64, userIDs []uint64) error

	// UnassignUsers removes user assignments from a task
	UnassignUsers(ctx context.Context, taskID uint64, userIDs []uint64) error

	// AddWatcher adds a watcher, ignoring duplicates
	AddWatcher(ctx context.Context, taskID, userID uint64) error

	// RemoveWatcher removes a watcher
	RemoveWatcher(ctx context.Context, taskID, userID uint64) error

	// CountProjectMembers counts how many of the given users are members of the project
	CountProjectMembers(ctx context.Context, projectID uint64, userIDs []uint64) (int64, error)

	// CreateSubtask appends a subtask at the end of the task's checklist
	CreateSubtask(ctx context.Context, subtask *models.Subtask) error

	// FindSubtask finds a subtask of a task
	FindSubtask(ctx context.Context, taskID, subtaskID uint64) (*models.Subtask, error)

	// UpdateSubtask saves a subtask
	UpdateSubtask(ctx context.Context, subtask *models.Subtask) error

	// CreateComment stores a comment
	CreateComment(ctx context.Context, comment *models.Comment) error

	// ListComments lists the comments of a task, oldest first
	ListComments(ctx context.Context, taskID uint64) ([]models.Comment, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	WorkspaceID     *uint64
	ProjectID       *uint64
	Status          *models.TaskStatus
	AssignedUserID  *uint64
	DueDateFrom     *time.Time
	DueDateTo       *time.Time
	IncludeArchived bool
	SortByDueDate   bool
	Page            int
	PageSize        int
}

// ActivityRepository defines the interface for activity history
type ActivityRepository interface {
	// Record appends an activity entry
	Record(ctx context.Context, activity *models.Activity) error

	// ListByResource lists the newest entries for a resource
	ListByResource(ctx context.Context, resourceType models.ResourceType, resourceID uint64, limit int) ([]models.Activity, error)
}

// StatsRepository defines the aggregate queries behind the workspace dashboard
type StatsRepository interface {
	// CountProjectsByStatus groups the workspace's projects by status
	CountProjectsByStatus(ctx context.Context, workspaceID uint64) (map[models.ProjectStatus]int64, error)

	// CountTasksByStatus groups non-archived tasks by status
	CountTasksByStatus(ctx context.Context, workspaceID uint64) (map[models.TaskStatus]int64, error)

	// CountTasksByPriority groups non-archived tasks by priority
	CountTasksByPriority(ctx context.Context, workspaceID uint64) (map[models.TaskPriority]int64, error)

	// TaskTimestampsSince returns creation and completion times of tasks touched since the cutoff
	TaskTimestampsSince(ctx context.Context, workspaceID uint64, since time.Time) ([]TaskTimestamps, error)

	// ProjectProgress returns total and completed task counts per project
	ProjectProgress(ctx context.Context, workspaceID uint64) ([]ProjectProgressRow, error)

	// RecentProjects returns the most recently updated projects
	RecentProjects(ctx context.Context, workspaceID uint64, limit int) ([]models.Project, error)

	// UpcomingTasks returns open tasks due in [from, to), soonest first
	UpcomingTasks(ctx context.Context, workspaceID uint64, from, to time.Time, limit int) ([]models.Task, error)
}

// TaskTimestamps is the slice of a task needed for trend lines.
type TaskTimestamps struct {
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ProjectProgressRow is one row of the per-project completion query.
type ProjectProgressRow struct {
	ProjectID uint64
	Total     int64
	Completed int64
}
