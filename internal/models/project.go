package models

import (
	"time"

	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "Planning"
	ProjectStatusActive    ProjectStatus = "Active"
	ProjectStatusOnHold    ProjectStatus = "On Hold"
	ProjectStatusCompleted ProjectStatus = "Completed"
	ProjectStatusCancelled ProjectStatus = "Cancelled"
)

// ProjectStatuses lists every project status in display order.
var ProjectStatuses = []ProjectStatus{
	ProjectStatusPlanning,
	ProjectStatusActive,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type ProjectRole string

const (
	ProjectRoleManager     ProjectRole = "manager"
	ProjectRoleContributor ProjectRole = "contributor"
	ProjectRoleViewer      ProjectRole = "viewer"
)

func (r ProjectRole) Valid() bool {
	switch r {
	case ProjectRoleManager, ProjectRoleContributor, ProjectRoleViewer:
		return true
	}
	return false
}

type Project struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	WorkspaceID uint64         `gorm:"not null;index" json:"workspace_id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      ProjectStatus  `gorm:"type:varchar(20);not null;default:'Planning'" json:"status"`
	StartDate   *time.Time     `json:"start_date"`
	DueDate     *time.Time     `json:"due_date"`
	Tags        string         `gorm:"type:varchar(512)" json:"tags"`
	CreatorID   uint64         `gorm:"not null" json:"creator_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Workspace Workspace       `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Members   []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	Tasks     []Task          `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}

type ProjectMember struct {
	ProjectID uint64      `gorm:"primarykey;autoIncrement:false" json:"project_id"`
	UserID    uint64      `gorm:"primarykey;autoIncrement:false" json:"user_id"`
	Role      ProjectRole `gorm:"type:varchar(20);not null" json:"role"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
