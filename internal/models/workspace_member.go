package models

import "time"

type WorkspaceRole string

const (
	RoleOwner  WorkspaceRole = "owner"
	RoleAdmin  WorkspaceRole = "admin"
	RoleMember WorkspaceRole = "member"
	RoleViewer WorkspaceRole = "viewer"
)

// Valid reports whether r is a workspace role.
func (r WorkspaceRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// Assignable reports whether r may be granted through an invite or a role change.
// The owner role only exists through workspace creation.
func (r WorkspaceRole) Assignable() bool {
	return r.Valid() && r != RoleOwner
}

// CanManageMembers reports whether r may invite members and change roles.
func (r WorkspaceRole) CanManageMembers() bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanContribute reports whether r may create projects and tasks.
func (r WorkspaceRole) CanContribute() bool {
	return r.Valid() && r != RoleViewer
}

// WorkspaceMember is one roster entry. The composite primary key makes a
// duplicate (workspace, user) pair impossible at the store.
type WorkspaceMember struct {
	WorkspaceID uint64        `gorm:"primarykey;autoIncrement:false" json:"workspace_id"`
	UserID      uint64        `gorm:"primarykey;autoIncrement:false" json:"user_id"`
	Role        WorkspaceRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt    time.Time     `json:"joined_at"`

	// Relations
	Workspace Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
