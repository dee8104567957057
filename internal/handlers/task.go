package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type userIDsRequest struct {
	UserIDs []uint64 `json:"userIds" binding:"required,min=1"`
}

// ListTasks returns the tasks of a project
// Supports status, assignedToMe, dueToday, includeArchived and sort=dueDate filters
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, projectID, ok := projectRequest(c)
	if !ok {
		return
	}

	input := services.ListTasksInput{
		UserID:        userID,
		ProjectID:     projectID,
		SortByDueDate: c.Query("sort") == "dueDate",
	}

	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		if !s.Valid() {
			respondError(c, services.ErrInvalidTaskStatus)
			return
		}
		input.Status = &s
	}

	for name, dst := range map[string]*bool{
		"assignedToMe":    &input.AssignedToMe,
		"dueToday":        &input.DueToday,
		"includeArchived": &input.IncludeArchived,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid "+name)
			return
		}
		*dst = v
	}

	params := utils.GetPaginationParams(c)
	input.Page = params.Page
	input.PageSize = params.Limit

	tasks, total, err := h.tasks.ListTasks(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// CreateTask creates a task in a project
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, projectID, ok := projectRequest(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required"`
		Description string              `json:"description"`
		Status      models.TaskStatus   `json:"status"`
		Priority    models.TaskPriority `json:"priority"`
		DueDate     *time.Time          `json:"dueDate"`
		Assignees   []uint64            `json:"assignees"`
	}

	var req CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), userID, projectID, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Assignees:   req.Assignees,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GenerateTasks drafts tasks from free text with AI. Nothing is stored.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	userID, projectID, ok := projectRequest(c)
	if !ok {
		return
	}

	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required,max=10000"`
	}

	var req GenerateTasksRequest
	if !bindJSON(c, &req) {
		return
	}

	drafts, err := h.tasks.GenerateTasks(c.Request.Context(), userID, projectID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToGeneratedTaskDTOs(drafts),
	})
}

// GetTask returns a task with assignees, watchers and subtasks
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTask updates task fields
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title        *string              `json:"title"`
		Description  *string              `json:"description"`
		Status       *models.TaskStatus   `json:"status"`
		Priority     *models.TaskPriority `json:"priority"`
		DueDate      *time.Time           `json:"dueDate"`
		ClearDueDate bool                 `json:"clearDueDate"`
	}

	var req UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), userID, taskID, services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// ArchiveTask toggles the archived flag
func (h *TaskHandler) ArchiveTask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	task, err := h.tasks.ToggleArchive(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// AssignTask assigns users to a task
func (h *TaskHandler) AssignTask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	var req userIDsRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.AssignUsers(c.Request.Context(), userID, taskID, req.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UnassignTask removes users from a task
func (h *TaskHandler) UnassignTask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	var req userIDsRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.UnassignUsers(c.Request.Context(), userID, taskID, req.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// WatchTask subscribes the caller to a task
func (h *TaskHandler) WatchTask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	task, err := h.tasks.Watch(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UnwatchTask unsubscribes the caller from a task
func (h *TaskHandler) UnwatchTask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	task, err := h.tasks.Unwatch(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// AddSubtask appends a checklist item
func (h *TaskHandler) AddSubtask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	type AddSubtaskRequest struct {
		Title string `json:"title" binding:"required"`
	}

	var req AddSubtaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.AddSubtask(c.Request.Context(), userID, taskID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateSubtask renames or checks off a checklist item
func (h *TaskHandler) UpdateSubtask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}
	subtaskID, ok := idParam(c, "subtaskId")
	if !ok {
		return
	}

	type UpdateSubtaskRequest struct {
		Title *string `json:"title"`
		Done  *bool   `json:"done"`
	}

	var req UpdateSubtaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.UpdateSubtask(c.Request.Context(), userID, taskID, subtaskID, services.UpdateSubtaskInput{
		Title: req.Title,
		Done:  req.Done,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// AddComment posts a comment on a task
func (h *TaskHandler) AddComment(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	type AddCommentRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req AddCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.tasks.AddComment(c.Request.Context(), userID, taskID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// ListComments returns the comments of a task, oldest first
func (h *TaskHandler) ListComments(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	comments, err := h.tasks.ListComments(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCommentDTOs(comments))
}

// ListActivity returns the history of a task, newest first
func (h *TaskHandler) ListActivity(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	entries, err := h.tasks.ListActivity(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToActivityDTOs(entries))
}

func projectRequest(c *gin.Context) (uint64, uint64, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return 0, 0, false
	}
	projectID, ok := idParam(c, "projectId")
	if !ok {
		return 0, 0, false
	}
	return userID, projectID, true
}

func taskRequest(c *gin.Context) (uint64, uint64, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return 0, 0, false
	}
	taskID, ok := idParam(c, "taskId")
	if !ok {
		return 0, 0, false
	}
	return userID, taskID, true
}
