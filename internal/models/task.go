package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "To Do"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusDone       TaskStatus = "Done"
)

// TaskStatuses lists every task status in board order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

// TaskPriorities lists every priority from lowest to highest.
var TaskPriorities = []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh}

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      TaskStatus     `gorm:"type:varchar(20);not null;default:'To Do'" json:"status"`
	Priority    TaskPriority   `gorm:"type:varchar(20);not null;default:'Medium'" json:"priority"`
	DueDate     *time.Time     `json:"due_date"`
	CompletedAt *time.Time     `json:"completed_at"`
	IsArchived  bool           `gorm:"not null;default:false" json:"is_archived"`
	CreatorID   uint64         `gorm:"not null" json:"creator_id"`
	ProjectID   uint64         `gorm:"not null;index" json:"project_id"`
	WorkspaceID uint64         `gorm:"not null;index" json:"workspace_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator     User             `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Project     Project          `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
	Watchers    []TaskWatcher    `gorm:"foreignKey:TaskID" json:"watchers,omitempty"`
	Subtasks    []Subtask        `gorm:"foreignKey:TaskID" json:"subtasks,omitempty"`
}

// SetStatus changes the status and keeps CompletedAt in step with it.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	if t.Status == status {
		return
	}
	t.Status = status
	if status == TaskStatusDone {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}

// Subtask is an ordered checklist item of a task.
type Subtask struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	TaskID    uint64    `gorm:"not null;index" json:"task_id"`
	Title     string    `gorm:"not null" json:"title"`
	Done      bool      `gorm:"not null;default:false" json:"done"`
	Position  int       `gorm:"not null" json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
