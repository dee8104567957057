package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkspaceRole(t *testing.T) {
	tests := []struct {
		role       WorkspaceRole
		valid      bool
		assignable bool
		manage     bool
		contribute bool
	}{
		{RoleOwner, true, false, true, true},
		{RoleAdmin, true, true, true, true},
		{RoleMember, true, true, false, true},
		{RoleViewer, true, true, false, false},
		{"contributor", false, false, false, false},
		{"", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.Valid())
			assert.Equal(t, tt.assignable, tt.role.Assignable())
			assert.Equal(t, tt.manage, tt.role.CanManageMembers())
			assert.Equal(t, tt.contribute, tt.role.CanContribute())
		})
	}
}

func TestProjectRoleIsSeparateFromWorkspaceRole(t *testing.T) {
	assert.True(t, ProjectRoleContributor.Valid())
	assert.False(t, ProjectRole("member").Valid())
	assert.False(t, WorkspaceRole("manager").Valid())
}

func TestTask_SetStatus(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	task := &Task{Status: TaskStatusTodo}

	task.SetStatus(TaskStatusDone, now)
	assert.Equal(t, TaskStatusDone, task.Status)
	if assert.NotNil(t, task.CompletedAt) {
		assert.True(t, task.CompletedAt.Equal(now))
	}

	// Same status keeps the original completion time.
	task.SetStatus(TaskStatusDone, now.Add(time.Hour))
	assert.True(t, task.CompletedAt.Equal(now))

	task.SetStatus(TaskStatusInProgress, now)
	assert.Nil(t, task.CompletedAt)
}

func TestWorkspace_HasStandingInvite(t *testing.T) {
	code := "abcd-ef01-2345"
	empty := ""

	assert.False(t, (&Workspace{}).HasStandingInvite())
	assert.False(t, (&Workspace{InviteCode: &empty, InviteRole: RoleMember}).HasStandingInvite())
	assert.False(t, (&Workspace{InviteCode: &code, InviteRole: RoleOwner}).HasStandingInvite())
	assert.True(t, (&Workspace{InviteCode: &code, InviteRole: RoleMember}).HasStandingInvite())
}
