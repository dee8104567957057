package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// TaskAssignmentDTO represents a task assignment in API responses
type TaskAssignmentDTO struct {
	User UserSummaryDTO `json:"user"`
}

// SubtaskDTO represents a checklist item
type SubtaskDTO struct {
	ID       uint64 `json:"id"`
	Title    string `json:"title"`
	Done     bool   `json:"done"`
	Position int    `json:"position"`
}

// ProjectRefDTO is the minimal project embedded in a task
type ProjectRefDTO struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
	CompletedAt *time.Time          `json:"completedAt"`
	IsArchived  bool                `json:"isArchived"`
	CreatorID   uint64              `json:"creatorId"`
	ProjectID   uint64              `json:"projectId"`
	WorkspaceID uint64              `json:"workspaceId"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Creator     *UserSummaryDTO     `json:"creator,omitempty"`
	Project     *ProjectRefDTO      `json:"project,omitempty"`
	Assignees   []TaskAssignmentDTO `json:"assignees"`
	Watchers    []UserSummaryDTO    `json:"watchers,omitempty"`
	Subtasks    []SubtaskDTO        `json:"subtasks,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalCount int64     `json:"totalCount"`
	TotalPages int       `json:"totalPages"`
}

// CommentDTO represents a task comment
type CommentDTO struct {
	ID        uint64          `json:"id"`
	TaskID    uint64          `json:"taskId"`
	Text      string          `json:"text"`
	Author    *UserSummaryDTO `json:"author,omitempty"`
	AuthorID  uint64          `json:"authorId"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ActivityDTO represents one history entry
type ActivityDTO struct {
	ID           uint64                `json:"id"`
	Action       models.ActivityAction `json:"action"`
	ResourceType models.ResourceType   `json:"resourceType"`
	ResourceID   uint64                `json:"resourceId"`
	Details      string                `json:"details"`
	User         *UserSummaryDTO       `json:"user,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// GeneratedTaskDTO is an AI drafted task awaiting review
type GeneratedTaskDTO struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		CompletedAt: task.CompletedAt,
		IsArchived:  task.IsArchived,
		CreatorID:   task.CreatorID,
		ProjectID:   task.ProjectID,
		WorkspaceID: task.WorkspaceID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Creator:     userSummary(task.Creator),
		Assignees:   make([]TaskAssignmentDTO, len(task.Assignments)),
	}

	// Include project if preloaded
	if task.Project.ID != 0 {
		dto.Project = &ProjectRefDTO{ID: task.Project.ID, Title: task.Project.Title}
	}

	for i, assignment := range task.Assignments {
		dto.Assignees[i] = TaskAssignmentDTO{User: ToUserSummaryDTO(assignment.User)}
	}

	if len(task.Watchers) > 0 {
		dto.Watchers = make([]UserSummaryDTO, len(task.Watchers))
		for i, w := range task.Watchers {
			dto.Watchers[i] = ToUserSummaryDTO(w.User)
		}
	}

	if len(task.Subtasks) > 0 {
		dto.Subtasks = make([]SubtaskDTO, len(task.Subtasks))
		for i, s := range task.Subtasks {
			dto.Subtasks[i] = SubtaskDTO{ID: s.ID, Title: s.Title, Done: s.Done, Position: s.Position}
		}
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		out[i] = ToTaskDTO(task)
	}
	return out
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	totalPages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		totalPages++
	}

	return TaskListResponse{
		Tasks:      ToTaskDTOs(tasks),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		Text:      comment.Text,
		Author:    userSummary(comment.Author),
		AuthorID:  comment.AuthorID,
		CreatedAt: comment.CreatedAt,
	}
}

// ToCommentDTOs converts a slice of comments
func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	out := make([]CommentDTO, len(comments))
	for i, c := range comments {
		out[i] = ToCommentDTO(c)
	}
	return out
}

// ToActivityDTOs converts history entries
func ToActivityDTOs(entries []models.Activity) []ActivityDTO {
	out := make([]ActivityDTO, len(entries))
	for i, a := range entries {
		out[i] = ActivityDTO{
			ID:           a.ID,
			Action:       a.Action,
			ResourceType: a.ResourceType,
			ResourceID:   a.ResourceID,
			Details:      a.Details,
			User:         userSummary(a.User),
			CreatedAt:    a.CreatedAt,
		}
	}
	return out
}

// ToGeneratedTaskDTOs converts AI drafts
func ToGeneratedTaskDTOs(tasks []services.GeneratedTask) []GeneratedTaskDTO {
	out := make([]GeneratedTaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = GeneratedTaskDTO{
			Title:       t.Title,
			Description: t.Description,
			Priority:    t.Priority,
			DueDate:     t.DueDate,
		}
	}
	return out
}
