package models

import "time"

type Comment struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	TaskID    uint64    `gorm:"not null;index" json:"task_id"`
	AuthorID  uint64    `gorm:"not null" json:"author_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

type ActivityAction string

const (
	ActionCreatedWorkspace ActivityAction = "created_workspace"
	ActionJoinedWorkspace  ActivityAction = "joined_workspace"
	ActionChangedRole      ActivityAction = "changed_role"
	ActionRemovedMember    ActivityAction = "removed_member"
	ActionLeftWorkspace    ActivityAction = "left_workspace"
	ActionCreatedProject   ActivityAction = "created_project"
	ActionUpdatedProject   ActivityAction = "updated_project"
	ActionCreatedTask      ActivityAction = "created_task"
	ActionUpdatedTask      ActivityAction = "updated_task"
	ActionArchivedTask     ActivityAction = "archived_task"
	ActionAddedComment     ActivityAction = "added_comment"
	ActionAddedSubtask     ActivityAction = "added_subtask"
	ActionUpdatedSubtask   ActivityAction = "updated_subtask"
)

type ResourceType string

const (
	ResourceWorkspace ResourceType = "workspace"
	ResourceProject   ResourceType = "project"
	ResourceTask      ResourceType = "task"
)

// Activity is one entry of the append-only history shown next to a resource.
type Activity struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	UserID       uint64         `gorm:"not null;index" json:"user_id"`
	Action       ActivityAction `gorm:"type:varchar(40);not null" json:"action"`
	ResourceType ResourceType   `gorm:"type:varchar(20);not null;index:idx_activity_resource" json:"resource_type"`
	ResourceID   uint64         `gorm:"not null;index:idx_activity_resource" json:"resource_id"`
	Details      string         `gorm:"type:text" json:"details"`
	CreatedAt    time.Time      `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
