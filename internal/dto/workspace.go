package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// WorkspaceDTO represents a workspace in API responses
type WorkspaceDTO struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	OwnerID     uint64    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WorkspaceWithRoleDTO is a workspace listed with the caller's role
type WorkspaceWithRoleDTO struct {
	WorkspaceDTO
	Role models.WorkspaceRole `json:"role"`
}

// WorkspaceMemberDTO represents one roster entry
type WorkspaceMemberDTO struct {
	User     UserSummaryDTO       `json:"user"`
	Role     models.WorkspaceRole `json:"role"`
	JoinedAt time.Time            `json:"joinedAt"`
}

// WorkspaceDetailDTO is a workspace with its roster
type WorkspaceDetailDTO struct {
	WorkspaceDTO
	Members  []WorkspaceMemberDTO `json:"members"`
	YourRole models.WorkspaceRole `json:"yourRole"`
}

// InvitationLinkResponse is returned when an invite link is generated
type InvitationLinkResponse struct {
	InvitationLink string               `json:"invitationLink"`
	Role           models.WorkspaceRole `json:"role"`
	ExpiresAt      time.Time            `json:"expiresAt"`
}

// StandingInviteResponse describes the standing invite link
type StandingInviteResponse struct {
	InviteCode     string               `json:"inviteCode"`
	InvitationLink string               `json:"invitationLink"`
	Role           models.WorkspaceRole `json:"role"`
}

// AcceptInviteResponse reports the outcome of joining a workspace
type AcceptInviteResponse struct {
	Workspace WorkspaceDTO         `json:"workspace"`
	Role      models.WorkspaceRole `json:"role"`
	Joined    bool                 `json:"joined"`
}

// ToWorkspaceDTO converts a Workspace model to WorkspaceDTO
func ToWorkspaceDTO(ws models.Workspace) WorkspaceDTO {
	return WorkspaceDTO{
		ID:          ws.ID,
		Name:        ws.Name,
		Description: ws.Description,
		Color:       ws.Color,
		OwnerID:     ws.OwnerID,
		CreatedAt:   ws.CreatedAt,
		UpdatedAt:   ws.UpdatedAt,
	}
}

// ToWorkspaceWithRoleDTOs converts the caller's memberships
func ToWorkspaceWithRoleDTOs(memberships []models.WorkspaceMember) []WorkspaceWithRoleDTO {
	out := make([]WorkspaceWithRoleDTO, len(memberships))
	for i, m := range memberships {
		out[i] = WorkspaceWithRoleDTO{
			WorkspaceDTO: ToWorkspaceDTO(m.Workspace),
			Role:         m.Role,
		}
	}
	return out
}

// ToWorkspaceMemberDTO converts a roster entry
func ToWorkspaceMemberDTO(member models.WorkspaceMember) WorkspaceMemberDTO {
	return WorkspaceMemberDTO{
		User:     ToUserSummaryDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToWorkspaceDetailDTO converts workspace details with the resolved roster
func ToWorkspaceDetailDTO(details *services.WorkspaceDetails) WorkspaceDetailDTO {
	members := make([]WorkspaceMemberDTO, len(details.Members))
	for i, m := range details.Members {
		members[i] = ToWorkspaceMemberDTO(m)
	}

	return WorkspaceDetailDTO{
		WorkspaceDTO: ToWorkspaceDTO(*details.Workspace),
		Members:      members,
		YourRole:     details.Role,
	}
}

// ToAcceptInviteResponse converts an acceptance outcome
func ToAcceptInviteResponse(result *services.AcceptResult) AcceptInviteResponse {
	return AcceptInviteResponse{
		Workspace: ToWorkspaceDTO(*result.Workspace),
		Role:      result.Role,
		Joined:    result.Joined,
	}
}

// ToStandingInviteResponse converts a standing invite link
func ToStandingInviteResponse(invite *services.StandingInvite) StandingInviteResponse {
	return StandingInviteResponse{
		InviteCode:     invite.Code,
		InvitationLink: invite.URL,
		Role:           invite.Role,
	}
}
