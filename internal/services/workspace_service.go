package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrWorkspaceNotFound     = apierrors.New(apierrors.KindNotFound, "workspace not found")
	ErrNotWorkspaceMember    = apierrors.New(apierrors.KindForbidden, "you are not a member of this workspace")
	ErrInsufficientRole      = apierrors.New(apierrors.KindForbidden, "only workspace owners and admins can perform this action")
	ErrOwnerOnly             = apierrors.New(apierrors.KindForbidden, "only the workspace owner can perform this action")
	ErrInvalidWorkspaceName  = apierrors.New(apierrors.KindValidation, fmt.Sprintf("workspace name must be at least %d characters", constants.MinWorkspaceNameLength))
	ErrInvalidWorkspaceColor = apierrors.New(apierrors.KindValidation, fmt.Sprintf("color must be at least %d characters", constants.MinColorLength))
	ErrInvalidWorkspaceRole  = apierrors.New(apierrors.KindValidation, "role must be one of admin, member, viewer")
	ErrInvalidInviteToken    = apierrors.New(apierrors.KindInvalidToken, "invitation is invalid or has expired")
	ErrNoStandingInvite      = apierrors.New(apierrors.KindNotFound, "workspace has no active invite link")
	ErrInvalidInviteCode     = apierrors.New(apierrors.KindNotFound, "invalid invite code")
	ErrMemberNotFound        = apierrors.New(apierrors.KindNotFound, "member not found")
	ErrOwnerRoleImmutable    = apierrors.New(apierrors.KindForbidden, "the workspace owner's role cannot be changed")
	ErrCannotRemoveOwner     = apierrors.New(apierrors.KindForbidden, "the workspace owner cannot be removed")
	ErrCannotRemoveYourself  = apierrors.New(apierrors.KindValidation, "cannot remove yourself, leave the workspace instead")
	ErrOwnerCannotLeave      = apierrors.New(apierrors.KindForbidden, "the workspace owner cannot leave the workspace")
)

// WorkspaceService owns workspace creation, the member roster, roles and
// both invitation forms: signed invite tokens and the standing invite link.
type WorkspaceService struct {
	repo        repository.WorkspaceRepository
	invites     *auth.InviteTokens
	activity    *ActivityService
	frontendURL string
	log         *slog.Logger
	now         func() time.Time
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(
	repo repository.WorkspaceRepository,
	invites *auth.InviteTokens,
	activity *ActivityService,
	frontendURL string,
	log *slog.Logger,
) *WorkspaceService {
	return &WorkspaceService{
		repo:        repo,
		invites:     invites,
		activity:    activity,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
		now:         time.Now,
	}
}

// CreateWorkspaceInput represents parameters to create a new workspace.
type CreateWorkspaceInput struct {
	Name        string
	Description string
	Color       string
}

// UpdateWorkspaceInput holds the optional fields of a workspace update.
type UpdateWorkspaceInput struct {
	Name        *string
	Description *string
	Color       *string
}

// WorkspaceDetails is a workspace with its resolved roster and the caller's role.
type WorkspaceDetails struct {
	Workspace *models.Workspace
	Members   []models.WorkspaceMember
	Role      models.WorkspaceRole
}

// InviteLink is a freshly issued signed invitation.
type InviteLink struct {
	URL       string
	Role      models.WorkspaceRole
	ExpiresAt time.Time
}

// StandingInvite describes an enabled standing invite link.
type StandingInvite struct {
	Code string
	URL  string
	Role models.WorkspaceRole
}

// AcceptResult reports the outcome of an invite acceptance. Joined is false
// when the caller was already a member.
type AcceptResult struct {
	Workspace *models.Workspace
	Role      models.WorkspaceRole
	Joined    bool
}

// CreateWorkspace creates a workspace whose creator is the owner and sole member.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, requesterID uint64, input CreateWorkspaceInput) (*models.Workspace, error) {
	name := strings.TrimSpace(input.Name)
	if len([]rune(name)) < constants.MinWorkspaceNameLength {
		return nil, ErrInvalidWorkspaceName
	}
	color := strings.TrimSpace(input.Color)
	if len([]rune(color)) < constants.MinColorLength {
		return nil, ErrInvalidWorkspaceColor
	}

	now := s.now()
	ws := &models.Workspace{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Color:       color,
		OwnerID:     requesterID,
	}
	owner := &models.WorkspaceMember{
		UserID:   requesterID,
		Role:     models.RoleOwner,
		JoinedAt: now,
	}

	if err := s.repo.Create(ctx, ws, owner); err != nil {
		return nil, apierrors.Internal("failed to create workspace", err)
	}

	metrics.WorkspacesCreated.Inc()
	s.activity.Record(ctx, requesterID, models.ActionCreatedWorkspace, models.ResourceWorkspace, ws.ID, ws.Name)
	s.log.Info("workspace created", slog.Uint64("workspace_id", ws.ID), slog.Uint64("owner_id", requesterID))

	ws.Members = []models.WorkspaceMember{*owner}
	return ws, nil
}

// ListWorkspaces returns the caller's roster entries with their workspaces,
// oldest workspace first.
func (s *WorkspaceService) ListWorkspaces(ctx context.Context, requesterID uint64) ([]models.WorkspaceMember, error) {
	memberships, err := s.repo.ListMembersByUserID(ctx, requesterID)
	if err != nil {
		return nil, apierrors.Internal("failed to list workspaces", err)
	}
	return memberships, nil
}

// Authorize loads the workspace and the caller's roster entry. It fails with
// NotFound for a missing workspace and Forbidden for a non-member.
func (s *WorkspaceService) Authorize(ctx context.Context, requesterID, workspaceID uint64) (*models.Workspace, *models.WorkspaceMember, error) {
	ws, err := s.findWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, nil, err
	}

	member, err := s.repo.FindMember(ctx, workspaceID, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotWorkspaceMember
		}
		return nil, nil, apierrors.Internal("failed to verify membership", err)
	}

	return ws, member, nil
}

// GetWorkspaceDetails returns the workspace and its resolved roster.
func (s *WorkspaceService) GetWorkspaceDetails(ctx context.Context, requesterID, workspaceID uint64) (*WorkspaceDetails, error) {
	ws, member, err := s.Authorize(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, apierrors.Internal("failed to list workspace members", err)
	}

	return &WorkspaceDetails{Workspace: ws, Members: members, Role: member.Role}, nil
}

// UpdateWorkspace changes name, description or color. Owners and admins only.
func (s *WorkspaceService) UpdateWorkspace(ctx context.Context, requesterID, workspaceID uint64, input UpdateWorkspaceInput) (*models.Workspace, error) {
	ws, err := s.authorizeManager(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len([]rune(name)) < constants.MinWorkspaceNameLength {
			return nil, ErrInvalidWorkspaceName
		}
		ws.Name = name
	}
	if input.Color != nil {
		color := strings.TrimSpace(*input.Color)
		if len([]rune(color)) < constants.MinColorLength {
			return nil, ErrInvalidWorkspaceColor
		}
		ws.Color = color
	}
	if input.Description != nil {
		ws.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.repo.Update(ctx, ws); err != nil {
		return nil, apierrors.Internal("failed to update workspace", err)
	}
	return ws, nil
}

// DeleteWorkspace removes the workspace with its projects and tasks. Owner only.
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, requesterID, workspaceID uint64) error {
	_, member, err := s.Authorize(ctx, requesterID, workspaceID)
	if err != nil {
		return err
	}
	if member.Role != models.RoleOwner {
		return ErrOwnerOnly
	}

	if err := s.repo.Delete(ctx, workspaceID); err != nil {
		return apierrors.Internal("failed to delete workspace", err)
	}

	s.log.Info("workspace deleted", slog.Uint64("workspace_id", workspaceID), slog.Uint64("user_id", requesterID))
	return nil
}

// GenerateInviteLink issues a signed invitation for role. The roster is not
// touched until the invitation is accepted.
func (s *WorkspaceService) GenerateInviteLink(ctx context.Context, requesterID, workspaceID uint64, role models.WorkspaceRole) (*InviteLink, error) {
	ws, err := s.authorizeManager(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !role.Assignable() {
		return nil, ErrInvalidWorkspaceRole
	}

	token, expiresAt, err := s.invites.Issue(ws.ID, string(role), requesterID)
	if err != nil {
		return nil, apierrors.Internal("failed to issue invite token", err)
	}

	metrics.InvitesIssued.WithLabelValues(metrics.InviteKindToken).Inc()

	link := fmt.Sprintf("%s/workspace-invite/%d?tk=%s", s.frontendURL, ws.ID, url.QueryEscape(token))
	return &InviteLink{URL: link, Role: role, ExpiresAt: expiresAt}, nil
}

// AcceptInviteByToken adds the caller at the role encoded in a signed
// invitation. Accepting again, or accepting as an existing member, succeeds
// without changing the roster. Tokens stay valid for other users until they
// expire.
func (s *WorkspaceService) AcceptInviteByToken(ctx context.Context, requesterID uint64, token string) (*AcceptResult, error) {
	claims, err := s.invites.Parse(token)
	if err != nil {
		metrics.InvitesAccepted.WithLabelValues(metrics.InviteKindToken, metrics.OutcomeInvalid).Inc()
		return nil, apierrors.Wrap(apierrors.KindInvalidToken, ErrInvalidInviteToken.Message, err)
	}

	role := models.WorkspaceRole(claims.Role)
	if !role.Assignable() {
		metrics.InvitesAccepted.WithLabelValues(metrics.InviteKindToken, metrics.OutcomeInvalid).Inc()
		return nil, ErrInvalidInviteToken
	}

	ws, err := s.findWorkspace(ctx, claims.WorkspaceID)
	if err != nil {
		if errors.Is(err, ErrWorkspaceNotFound) {
			metrics.InvitesAccepted.WithLabelValues(metrics.InviteKindToken, metrics.OutcomeNotFound).Inc()
		}
		return nil, err
	}

	return s.join(ctx, ws, requesterID, role, metrics.InviteKindToken)
}

// AcceptGeneratedInvite adds the caller through the workspace's standing
// invite link at the link's fixed role.
func (s *WorkspaceService) AcceptGeneratedInvite(ctx context.Context, requesterID, workspaceID uint64) (*AcceptResult, error) {
	ws, err := s.findWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !ws.HasStandingInvite() {
		metrics.InvitesAccepted.WithLabelValues(metrics.InviteKindLink, metrics.OutcomeNotFound).Inc()
		return nil, ErrNoStandingInvite
	}

	return s.join(ctx, ws, requesterID, ws.InviteRole, metrics.InviteKindLink)
}

// JoinByInviteCode adds the caller through a standing invite code.
func (s *WorkspaceService) JoinByInviteCode(ctx context.Context, requesterID uint64, code string) (*AcceptResult, error) {
	code = utils.NormalizeInviteCode(code)
	if code == "" {
		return nil, ErrInvalidInviteCode
	}

	ws, err := s.repo.FindByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.InvitesAccepted.WithLabelValues(metrics.InviteKindLink, metrics.OutcomeNotFound).Inc()
			return nil, ErrInvalidInviteCode
		}
		return nil, apierrors.Internal("failed to find workspace by invite code", err)
	}
	if !ws.HasStandingInvite() {
		return nil, ErrInvalidInviteCode
	}

	return s.join(ctx, ws, requesterID, ws.InviteRole, metrics.InviteKindLink)
}

// EnableInviteLink turns the standing invite link on at role, rotating its
// code so previously shared links stop working.
func (s *WorkspaceService) EnableInviteLink(ctx context.Context, requesterID, workspaceID uint64, role models.WorkspaceRole) (*StandingInvite, error) {
	ws, err := s.authorizeManager(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !role.Assignable() {
		return nil, ErrInvalidWorkspaceRole
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, apierrors.Internal("failed to generate invite code", err)
	}

	ws.InviteCode = &code
	ws.InviteRole = role
	if err := s.repo.Update(ctx, ws); err != nil {
		return nil, apierrors.Internal("failed to update invite link", err)
	}

	metrics.InvitesIssued.WithLabelValues(metrics.InviteKindLink).Inc()
	return s.standingInvite(ws), nil
}

// DisableInviteLink turns the standing invite link off.
func (s *WorkspaceService) DisableInviteLink(ctx context.Context, requesterID, workspaceID uint64) error {
	ws, err := s.authorizeManager(ctx, requesterID, workspaceID)
	if err != nil {
		return err
	}

	ws.InviteCode = nil
	ws.InviteRole = ""
	if err := s.repo.Update(ctx, ws); err != nil {
		return apierrors.Internal("failed to disable invite link", err)
	}
	return nil
}

// GetInviteLink returns the standing invite link, or ErrNoStandingInvite.
func (s *WorkspaceService) GetInviteLink(ctx context.Context, requesterID, workspaceID uint64) (*StandingInvite, error) {
	ws, err := s.authorizeManager(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !ws.HasStandingInvite() {
		return nil, ErrNoStandingInvite
	}
	return s.standingInvite(ws), nil
}

// ChangeRole sets the role of a member. The owner's entry is immutable and the
// owner role cannot be granted.
func (s *WorkspaceService) ChangeRole(ctx context.Context, requesterID, workspaceID, targetID uint64, role models.WorkspaceRole) (*models.WorkspaceMember, error) {
	ws, err := s.authorizeManager(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !role.Assignable() {
		return nil, ErrInvalidWorkspaceRole
	}

	target, err := s.findMember(ctx, workspaceID, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role == models.RoleOwner || targetID == ws.OwnerID {
		return nil, ErrOwnerRoleImmutable
	}
	if target.Role == role {
		return target, nil
	}

	if err := s.repo.UpdateMemberRole(ctx, workspaceID, targetID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, apierrors.Internal("failed to change role", err)
	}

	metrics.RoleChanges.Inc()
	s.activity.Record(ctx, requesterID, models.ActionChangedRole, models.ResourceWorkspace, workspaceID,
		fmt.Sprintf("user %d: %s -> %s", targetID, target.Role, role))

	target.Role = role
	return target, nil
}

// RemoveMember removes another member from the roster.
func (s *WorkspaceService) RemoveMember(ctx context.Context, requesterID, workspaceID, targetID uint64) error {
	ws, err := s.authorizeManager(ctx, requesterID, workspaceID)
	if err != nil {
		return err
	}
	if targetID == requesterID {
		return ErrCannotRemoveYourself
	}

	target, err := s.findMember(ctx, workspaceID, targetID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleOwner || targetID == ws.OwnerID {
		return ErrCannotRemoveOwner
	}

	if err := s.repo.RemoveMember(ctx, workspaceID, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return apierrors.Internal("failed to remove member", err)
	}

	s.activity.Record(ctx, requesterID, models.ActionRemovedMember, models.ResourceWorkspace, workspaceID,
		fmt.Sprintf("user %d", targetID))
	return nil
}

// LeaveWorkspace removes the caller from the roster. The owner cannot leave.
func (s *WorkspaceService) LeaveWorkspace(ctx context.Context, requesterID, workspaceID uint64) error {
	_, member, err := s.Authorize(ctx, requesterID, workspaceID)
	if err != nil {
		return err
	}
	if member.Role == models.RoleOwner {
		return ErrOwnerCannotLeave
	}

	if err := s.repo.RemoveMember(ctx, workspaceID, requesterID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.Internal("failed to leave workspace", err)
	}

	s.activity.Record(ctx, requesterID, models.ActionLeftWorkspace, models.ResourceWorkspace, workspaceID, "")
	return nil
}

// join adds the caller unless already present. The repository performs the
// check and the insert as one statement.
func (s *WorkspaceService) join(ctx context.Context, ws *models.Workspace, userID uint64, role models.WorkspaceRole, kind string) (*AcceptResult, error) {
	member := &models.WorkspaceMember{
		WorkspaceID: ws.ID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    s.now(),
	}

	added, err := s.repo.AddMemberIfAbsent(ctx, member)
	if err != nil {
		return nil, apierrors.Internal("failed to add member", err)
	}

	if !added {
		existing, err := s.findMember(ctx, ws.ID, userID)
		if err != nil {
			return nil, err
		}
		metrics.InvitesAccepted.WithLabelValues(kind, metrics.OutcomeAlreadyMember).Inc()
		return &AcceptResult{Workspace: ws, Role: existing.Role, Joined: false}, nil
	}

	metrics.InvitesAccepted.WithLabelValues(kind, metrics.OutcomeJoined).Inc()
	s.activity.Record(ctx, userID, models.ActionJoinedWorkspace, models.ResourceWorkspace, ws.ID, string(role))
	s.log.Info("member joined workspace",
		slog.Uint64("workspace_id", ws.ID),
		slog.Uint64("user_id", userID),
		slog.String("role", string(role)),
		slog.String("via", kind),
	)

	return &AcceptResult{Workspace: ws, Role: role, Joined: true}, nil
}

func (s *WorkspaceService) authorizeManager(ctx context.Context, requesterID, workspaceID uint64) (*models.Workspace, error) {
	ws, member, err := s.Authorize(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !member.Role.CanManageMembers() {
		return nil, ErrInsufficientRole
	}
	return ws, nil
}

func (s *WorkspaceService) findWorkspace(ctx context.Context, workspaceID uint64) (*models.Workspace, error) {
	ws, err := s.repo.FindByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, apierrors.Internal("failed to find workspace", err)
	}
	return ws, nil
}

func (s *WorkspaceService) findMember(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceMember, error) {
	member, err := s.repo.FindMember(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, apierrors.Internal("failed to find member", err)
	}
	return member, nil
}

func (s *WorkspaceService) standingInvite(ws *models.Workspace) *StandingInvite {
	code := *ws.InviteCode
	return &StandingInvite{
		Code: code,
		URL:  fmt.Sprintf("%s/workspace-invite/%d?code=%s", s.frontendURL, ws.ID, url.QueryEscape(code)),
		Role: ws.InviteRole,
	}
}
