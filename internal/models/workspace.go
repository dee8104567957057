package models

import (
	"time"

	"gorm.io/gorm"
)

type Workspace struct {
	ID          uint64 `gorm:"primarykey" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Color       string `gorm:"type:varchar(32);not null" json:"color"`
	OwnerID     uint64 `gorm:"not null;index" json:"owner_id"`

	// Standing invite link. InviteCode is nil while the link is disabled.
	InviteCode *string       `gorm:"type:varchar(50);uniqueIndex" json:"-"`
	InviteRole WorkspaceRole `gorm:"type:varchar(20)" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner    User              `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members,omitempty"`
	Projects []Project         `gorm:"foreignKey:WorkspaceID" json:"projects,omitempty"`
}

// HasStandingInvite reports whether the workspace accepts joins through its
// standing invite link.
func (w *Workspace) HasStandingInvite() bool {
	return w.InviteCode != nil && *w.InviteCode != "" && w.InviteRole.Assignable()
}
