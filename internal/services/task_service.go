package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = apierrors.New(apierrors.KindNotFound, "task not found")
	ErrSubtaskNotFound        = apierrors.New(apierrors.KindNotFound, "subtask not found")
	ErrTaskPermissionDenied   = apierrors.New(apierrors.KindForbidden, "user does not have permission to modify this task")
	ErrNoUserIDsProvided      = apierrors.New(apierrors.KindValidation, "at least one user ID is required")
	ErrTitleRequired          = apierrors.New(apierrors.KindValidation, "title is required")
	ErrCommentRequired        = apierrors.New(apierrors.KindValidation, "comment text is required")
	ErrInvalidTaskStatus      = apierrors.New(apierrors.KindValidation, "status must be one of To Do, In Progress, Done")
	ErrInvalidTaskPriority    = apierrors.New(apierrors.KindValidation, "priority must be one of Low, Medium, High")
	ErrInvalidTaskAssignee    = apierrors.New(apierrors.KindValidation, "assignees must be members of the project")
	ErrAIServiceNotConfigured = apierrors.New(apierrors.KindUnavailable, "AI service is not configured")
	ErrAIServiceFailed        = apierrors.New(apierrors.KindUnavailable, "AI service is unavailable")
	ErrAINoTasksGenerated     = apierrors.New(apierrors.KindValidation, "AI did not generate any tasks")
	ErrAITooManyTasks         = apierrors.New(apierrors.KindValidation, fmt.Sprintf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks))
	ErrAINoValidTasks         = apierrors.New(apierrors.KindValidation, "no valid tasks could be created from AI output")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	projects *ProjectService
	activity *ActivityService
	ai       TaskGenerator
	now      func() time.Time
}

// NewTaskService creates a new TaskService. ai may be nil when no API key is configured.
func NewTaskService(taskRepo repository.TaskRepository, projects *ProjectService, activity *ActivityService, ai TaskGenerator) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		projects: projects,
		activity: activity,
		ai:       ai,
		now:      time.Now,
	}
}

// ListTasksInput represents filters for listing the tasks of a project
type ListTasksInput struct {
	UserID          uint64
	ProjectID       uint64
	Status          *models.TaskStatus
	AssignedToMe    bool
	DueToday        bool
	IncludeArchived bool
	SortByDueDate   bool
	Page            int
	PageSize        int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
	Assignees   []uint64
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

// UpdateSubtaskInput represents input for updating a subtask
type UpdateSubtaskInput struct {
	Title *string
	Done  *bool
}

// taskAccess is a task together with the caller's standing in its project.
type taskAccess struct {
	task    *models.Task
	project *ProjectAccess
}

// ListTasks returns the tasks of a project visible to the caller
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	if _, err := s.projects.Access(ctx, input.UserID, input.ProjectID); err != nil {
		return nil, 0, err
	}

	filter := repository.TaskFilter{
		ProjectID:       &input.ProjectID,
		Status:          input.Status,
		IncludeArchived: input.IncludeArchived,
		SortByDueDate:   input.SortByDueDate,
		Page:            input.Page,
		PageSize:        input.PageSize,
	}
	if input.AssignedToMe {
		filter.AssignedUserID = &input.UserID
	}
	if input.DueToday {
		now := s.now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, apierrors.Internal("failed to list tasks", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(ctx context.Context, requesterID, taskID uint64) (*models.Task, error) {
	if _, err := s.access(ctx, requesterID, taskID); err != nil {
		return nil, err
	}
	return s.loadTask(ctx, taskID)
}

// CreateTask creates a task in a project
func (s *TaskService) CreateTask(ctx context.Context, requesterID, projectID uint64, input CreateTaskInput) (*models.Task, error) {
	access, err := s.projects.Access(ctx, requesterID, projectID)
	if err != nil {
		return nil, err
	}
	if !canContribute(access) {
		return nil, ErrTaskPermissionDenied
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidTaskStatus
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidTaskPriority
	}

	assignees := uniqueUint64(input.Assignees)
	if err := s.ensureProjectMembers(ctx, projectID, assignees); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		CreatorID:   requesterID,
		ProjectID:   projectID,
		WorkspaceID: access.Project.WorkspaceID,
		Status:      models.TaskStatusTodo,
	}
	task.SetStatus(input.Status, s.now())

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, apierrors.Internal("failed to create task", err)
	}

	if err := s.taskRepo.AssignUsers(ctx, task.ID, assignees); err != nil {
		return nil, apierrors.Internal("failed to assign users to task", err)
	}

	metrics.TasksCreated.Inc()
	s.activity.Record(ctx, requesterID, models.ActionCreatedTask, models.ResourceTask, task.ID, task.Title)
	s.activity.Record(ctx, requesterID, models.ActionCreatedTask, models.ResourceProject, projectID, task.Title)

	return s.loadTask(ctx, task.ID)
}

// UpdateTask updates an existing task
func (s *TaskService) UpdateTask(ctx context.Context, requesterID, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	access, err := s.modifiable(ctx, requesterID, taskID)
	if err != nil {
		return nil, err
	}
	task := access.task

	var changes []string
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if title != task.Title {
			changes = append(changes, "title")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
		changes = append(changes, "description")
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidTaskStatus
		}
		if *input.Status != task.Status {
			changes = append(changes, fmt.Sprintf("status %s -> %s", task.Status, *input.Status))
		}
		task.SetStatus(*input.Status, s.now())
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidTaskPriority
		}
		if *input.Priority != task.Priority {
			changes = append(changes, fmt.Sprintf("priority %s -> %s", task.Priority, *input.Priority))
		}
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
		changes = append(changes, "due date cleared")
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
		changes = append(changes, "due date")
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, apierrors.Internal("failed to update task", err)
	}

	if len(changes) > 0 {
		s.activity.Record(ctx, requesterID, models.ActionUpdatedTask, models.ResourceTask, task.ID, strings.Join(changes, ", "))
	}

	return s.loadTask(ctx, task.ID)
}

// ToggleArchive archives or restores a task
func (s *TaskService) ToggleArchive(ctx context.Context, requesterID, taskID uint64) (*models.Task, error) {
	access, err := s.modifiable(ctx, requesterID, taskID)
	if err != nil {
		return nil, err
	}
	task := access.task

	task.IsArchived = !task.IsArchived
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, apierrors.Internal("failed to archive task", err)
	}

	details := "archived"
	if !task.IsArchived {
		details = "restored"
	}
	s.activity.Record(ctx, requesterID, models.ActionArchivedTask, models.ResourceTask, task.ID, details)

	return s.loadTask(ctx, task.ID)
}

// AssignUsers assigns multiple users to a task with validation
func (s *TaskService) AssignUsers(ctx context.Context, requesterID, taskID uint64, userIDs []uint64) (*models.Task, error) {
	if len(userIDs) == 0 {
		return nil, ErrNoUserIDsProvided
	}

	access, err := s.modifiable(ctx, requesterID, taskID)
	if err != nil {
		return nil, err
	}

	ids := uniqueUint64(userIDs)
	if err := s.ensureProjectMembers(ctx, access.task.ProjectID, ids); err != nil {
		return nil, err
	}

	if err := s.taskRepo.AssignUsers(ctx, taskID, ids); err != nil {
		return nil, apierrors.Internal("failed to assign users", err)
	}

	s.activity.Record(ctx, requesterID, models.ActionUpdatedTask, models.ResourceTask, taskID, fmt.Sprintf("assigned %d user(s)", len(ids)))
	return s.loadTask(ctx, taskID)
}

// UnassignUsers removes user assignments from a task
func (s *TaskService) UnassignUsers(ctx context.Context, requesterID, taskID uint64, userIDs []uint64) (*models.Task, error) {
	if len(userIDs) == 0 {
		return nil, ErrNoUserIDsProvided
	}

	if _, err := s.modifiable(ctx, requesterID, taskID); err != nil {
		return nil, err
	}

	ids := uniqueUint64(userIDs)
	if err := s.taskRepo.UnassignUsers(ctx, taskID, ids); err != nil {
		return nil, apierrors.Internal("failed to unassign users", err)
	}

	s.activity.Record(ctx, requesterID, models.ActionUpdatedTask, models.ResourceTask, taskID, fmt.Sprintf("unassigned %d user(s)", len(ids)))
	return s.loadTask(ctx, taskID)
}

// Watch subscribes the caller to a task
func (s *TaskService) Watch(ctx context.Context, requesterID, taskID uint64) (*models.Task, error) {
	if _, err := s.access(ctx, requesterID, taskID); err != nil {
		return nil, err
	}
	if err := s.taskRepo.AddWatcher(ctx, taskID, requesterID); err != nil {
		return nil, apierrors.Internal("failed to watch task", err)
	}
	return s.loadTask(ctx, taskID)
}

// Unwatch unsubscribes the caller from a task
func (s *TaskService) Unwatch(ctx context.Context, requesterID, taskID uint64) (*models.Task, error) {
	if _, err := s.access(ctx, requesterID, taskID); err != nil {
		return nil, err
	}
	if err := s.taskRepo.RemoveWatcher(ctx, taskID, requesterID); err != nil {
		return nil, apierrors.Internal("failed to unwatch task", err)
	}
	return s.loadTask(ctx, taskID)
}

// AddSubtask appends a checklist item to a task
func (s *TaskService) AddSubtask(ctx context.Context, requesterID, taskID uint64, title string) (*models.Task, error) {
	if _, err := s.modifiable(ctx, requesterID, taskID); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	subtask := &models.Subtask{TaskID: taskID, Title: title}
	if err := s.taskRepo.CreateSubtask(ctx, subtask); err != nil {
		return nil, apierrors.Internal("failed to add subtask", err)
	}

	s.activity.Record(ctx, requesterID, models.ActionAddedSubtask, models.ResourceTask, taskID, title)
	return s.loadTask(ctx, taskID)
}

// UpdateSubtask renames or checks off a checklist item
func (s *TaskService) UpdateSubtask(ctx context.Context, requesterID, taskID, subtaskID uint64, input UpdateSubtaskInput) (*models.Task, error) {
	if _, err := s.modifiable(ctx, requesterID, taskID); err != nil {
		return nil, err
	}

	subtask, err := s.taskRepo.FindSubtask(ctx, taskID, subtaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubtaskNotFound
		}
		return nil, apierrors.Internal("failed to find subtask", err)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		subtask.Title = title
	}
	if input.Done != nil {
		subtask.Done = *input.Done
	}

	if err := s.taskRepo.UpdateSubtask(ctx, subtask); err != nil {
		return nil, apierrors.Internal("failed to update subtask", err)
	}

	details := subtask.Title
	if subtask.Done {
		details += " (done)"
	}
	s.activity.Record(ctx, requesterID, models.ActionUpdatedSubtask, models.ResourceTask, taskID, details)
	return s.loadTask(ctx, taskID)
}

// AddComment posts a comment on a task. Viewers may only read.
func (s *TaskService) AddComment(ctx context.Context, requesterID, taskID uint64, text string) (*models.Comment, error) {
	access, err := s.access(ctx, requesterID, taskID)
	if err != nil {
		return nil, err
	}
	if !access.project.WorkspaceRole.CanContribute() {
		return nil, ErrViewerCannotContribute
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrCommentRequired
	}

	comment := &models.Comment{TaskID: taskID, AuthorID: requesterID, Text: text}
	if err := s.taskRepo.CreateComment(ctx, comment); err != nil {
		return nil, apierrors.Internal("failed to add comment", err)
	}

	s.activity.Record(ctx, requesterID, models.ActionAddedComment, models.ResourceTask, taskID, "")
	return comment, nil
}

// ListComments returns the comments of a task, oldest first
func (s *TaskService) ListComments(ctx context.Context, requesterID, taskID uint64) ([]models.Comment, error) {
	if _, err := s.access(ctx, requesterID, taskID); err != nil {
		return nil, err
	}
	comments, err := s.taskRepo.ListComments(ctx, taskID)
	if err != nil {
		return nil, apierrors.Internal("failed to list comments", err)
	}
	return comments, nil
}

// ListActivity returns the history of a task, newest first
func (s *TaskService) ListActivity(ctx context.Context, requesterID, taskID uint64) ([]models.Activity, error) {
	if _, err := s.access(ctx, requesterID, taskID); err != nil {
		return nil, err
	}
	return s.activity.List(ctx, models.ResourceTask, taskID)
}

// GenerateTasks uses AI to draft tasks for a project from free text. Drafts
// are returned for review and not stored.
func (s *TaskService) GenerateTasks(ctx context.Context, requesterID, projectID uint64, text string) ([]GeneratedTask, error) {
	access, err := s.projects.Access(ctx, requesterID, projectID)
	if err != nil {
		return nil, err
	}
	if !canContribute(access) {
		return nil, ErrTaskPermissionDenied
	}
	if s.ai == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.ai.GenerateTasksFromText(ctx, access.Project.Title, text)
	if err != nil {
		metrics.AIGenerations.WithLabelValues("error").Inc()
		return nil, apierrors.Wrap(apierrors.KindUnavailable, ErrAIServiceFailed.Message, err)
	}

	if len(aiTasks) == 0 {
		metrics.AIGenerations.WithLabelValues("empty").Inc()
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, ErrAITooManyTasks
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		aiTask.Title = strings.TrimSpace(aiTask.Title)
		if aiTask.Title == "" {
			continue
		}

		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		if !models.TaskPriority(aiTask.Priority).Valid() {
			aiTask.Priority = string(models.TaskPriorityMedium)
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		metrics.AIGenerations.WithLabelValues("empty").Inc()
		return nil, ErrAINoValidTasks
	}

	metrics.AIGenerations.WithLabelValues("ok").Inc()
	return validTasks, nil
}

// access loads a task and checks that the caller belongs to its workspace
func (s *TaskService) access(ctx context.Context, requesterID, taskID uint64) (*taskAccess, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, apierrors.Internal("failed to find task", err)
	}

	project, err := s.projects.Access(ctx, requesterID, task.ProjectID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return &taskAccess{task: task, project: project}, nil
}

// modifiable is access plus the mutation rule: creator, assignee, project
// manager, or workspace owner or admin. Viewers never qualify.
func (s *TaskService) modifiable(ctx context.Context, requesterID, taskID uint64) (*taskAccess, error) {
	access, err := s.access(ctx, requesterID, taskID)
	if err != nil {
		return nil, err
	}

	if !access.project.WorkspaceRole.CanContribute() {
		return nil, ErrTaskPermissionDenied
	}
	if access.project.CanManage() || access.task.CreatorID == requesterID {
		return access, nil
	}
	for _, assignment := range access.task.Assignments {
		if assignment.UserID == requesterID {
			return access, nil
		}
	}
	return nil, ErrTaskPermissionDenied
}

func (s *TaskService) loadTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, "Creator", "Project", "Assignments.User", "Watchers.User", "Subtasks")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, apierrors.Internal("failed to load task", err)
	}
	return task, nil
}

// ensureProjectMembers verifies every user belongs to the project
func (s *TaskService) ensureProjectMembers(ctx context.Context, projectID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	count, err := s.taskRepo.CountProjectMembers(ctx, projectID, userIDs)
	if err != nil {
		return apierrors.Internal("failed to verify assignees", err)
	}
	if int(count) != len(userIDs) {
		return ErrInvalidTaskAssignee
	}
	return nil
}

// canContribute reports whether the caller may create tasks in a project
func canContribute(access *ProjectAccess) bool {
	if !access.WorkspaceRole.CanContribute() {
		return false
	}
	return access.ProjectRole != models.ProjectRoleViewer || access.WorkspaceRole.CanManageMembers()
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
