package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

type WorkspaceServiceTestSuite struct {
	suite.Suite
	env   *testEnv
	ctx   context.Context
	alice *models.User
	bob   *models.User
	carol *models.User
}

func (s *WorkspaceServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T(), nil)
	s.ctx = context.Background()
	s.alice = s.env.user(s.T(), "Alice")
	s.bob = s.env.user(s.T(), "Bob")
	s.carol = s.env.user(s.T(), "Carol")
}

func TestWorkspaceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WorkspaceServiceTestSuite))
}

func (s *WorkspaceServiceTestSuite) memberCount(workspaceID uint64) int {
	details, err := s.env.workspaces.GetWorkspaceDetails(s.ctx, s.alice.ID, workspaceID)
	s.Require().NoError(err)
	return len(details.Members)
}

func (s *WorkspaceServiceTestSuite) TestCreateWorkspace_OwnerIsSoleMember() {
	ws, err := s.env.workspaces.CreateWorkspace(s.ctx, s.alice.ID, CreateWorkspaceInput{
		Name:        "  Acme  ",
		Description: "Rockets",
		Color:       "#ff0000",
	})
	s.Require().NoError(err)
	s.Equal("Acme", ws.Name)
	s.Equal(s.alice.ID, ws.OwnerID)

	details, err := s.env.workspaces.GetWorkspaceDetails(s.ctx, s.alice.ID, ws.ID)
	s.Require().NoError(err)
	s.Require().Len(details.Members, 1)
	s.Equal(s.alice.ID, details.Members[0].UserID)
	s.Equal(models.RoleOwner, details.Members[0].Role)
	s.Equal("Alice", details.Members[0].User.Name)
	s.Equal(models.RoleOwner, details.Role)
}

func (s *WorkspaceServiceTestSuite) TestCreateWorkspace_Validation() {
	_, err := s.env.workspaces.CreateWorkspace(s.ctx, s.alice.ID, CreateWorkspaceInput{Name: "ab", Color: "#fff"})
	s.ErrorIs(err, ErrInvalidWorkspaceName)
	s.Equal(apierrors.KindValidation, apierrors.KindOf(err))

	_, err = s.env.workspaces.CreateWorkspace(s.ctx, s.alice.ID, CreateWorkspaceInput{Name: "   ", Color: "#fff"})
	s.ErrorIs(err, ErrInvalidWorkspaceName)

	_, err = s.env.workspaces.CreateWorkspace(s.ctx, s.alice.ID, CreateWorkspaceInput{Name: "Acme", Color: "#f"})
	s.ErrorIs(err, ErrInvalidWorkspaceColor)
}

func (s *WorkspaceServiceTestSuite) TestListWorkspaces_CreationOrder() {
	first := s.env.workspace(s.T(), s.alice, "First")
	s.env.workspace(s.T(), s.bob, "Not mine")
	second := s.env.workspace(s.T(), s.alice, "Second")

	memberships, err := s.env.workspaces.ListWorkspaces(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Require().Len(memberships, 2)
	s.Equal(first.ID, memberships[0].Workspace.ID)
	s.Equal(second.ID, memberships[1].Workspace.ID)
}

func (s *WorkspaceServiceTestSuite) TestGetWorkspaceDetails_Errors() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")

	_, err := s.env.workspaces.GetWorkspaceDetails(s.ctx, s.bob.ID, ws.ID)
	s.ErrorIs(err, ErrNotWorkspaceMember)
	s.Equal(apierrors.KindForbidden, apierrors.KindOf(err))

	_, err = s.env.workspaces.GetWorkspaceDetails(s.ctx, s.alice.ID, ws.ID+100)
	s.ErrorIs(err, ErrWorkspaceNotFound)
	s.Equal(apierrors.KindNotFound, apierrors.KindOf(err))
}

func (s *WorkspaceServiceTestSuite) TestGenerateInviteLink_AuthorizationGate() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")
	admin := s.env.user(s.T(), "Admin")
	viewer := s.env.user(s.T(), "Viewer")

	for user, role := range map[*models.User]models.WorkspaceRole{s.bob: models.RoleMember, viewer: models.RoleViewer, admin: models.RoleAdmin} {
		link, err := s.env.workspaces.GenerateInviteLink(s.ctx, s.alice.ID, ws.ID, role)
		s.Require().NoError(err)
		_, err = s.env.workspaces.AcceptInviteByToken(s.ctx, user.ID, tokenFromLink(s.T(), link.URL))
		s.Require().NoError(err)
	}

	for _, role := range []models.WorkspaceRole{models.RoleAdmin, models.RoleMember, models.RoleViewer} {
		_, err := s.env.workspaces.GenerateInviteLink(s.ctx, s.bob.ID, ws.ID, role)
		s.ErrorIs(err, ErrInsufficientRole, "member must not invite as %s", role)

		_, err = s.env.workspaces.GenerateInviteLink(s.ctx, viewer.ID, ws.ID, role)
		s.ErrorIs(err, ErrInsufficientRole, "viewer must not invite as %s", role)

		link, err := s.env.workspaces.GenerateInviteLink(s.ctx, admin.ID, ws.ID, role)
		s.Require().NoError(err, "admin invites as %s", role)
		s.Equal(role, link.Role)

		link, err = s.env.workspaces.GenerateInviteLink(s.ctx, s.alice.ID, ws.ID, role)
		s.Require().NoError(err, "owner invites as %s", role)
		s.Contains(link.URL, fmt.Sprintf("%s/workspace-invite/%d?tk=", testFrontendURL, ws.ID))
	}

	// Non-members are rejected before the role is considered.
	_, err := s.env.workspaces.GenerateInviteLink(s.ctx, s.carol.ID, ws.ID, models.RoleMember)
	s.ErrorIs(err, ErrNotWorkspaceMember)
	s.Equal(apierrors.KindForbidden, apierrors.KindOf(err))
}

func (s *WorkspaceServiceTestSuite) TestGenerateInviteLink_RejectsUnassignableRoles() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")

	for _, role := range []models.WorkspaceRole{models.RoleOwner, "contributor", "manager", ""} {
		_, err := s.env.workspaces.GenerateInviteLink(s.ctx, s.alice.ID, ws.ID, role)
		s.ErrorIs(err, ErrInvalidWorkspaceRole, "role %q", role)
	}
}

func (s *WorkspaceServiceTestSuite) TestAcceptInviteByToken_Idempotent() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")
	link, err := s.env.workspaces.GenerateInviteLink(s.ctx, s.alice.ID, ws.ID, models.RoleMember)
	s.Require().NoError(err)
	token := tokenFromLink(s.T(), link.URL)

	result, err := s.env.workspaces.AcceptInviteByToken(s.ctx, s.bob.ID, token)
	s.Require().NoError(err)
	s.True(result.Joined)
	s.Equal(models.RoleMember, result.Role)

	result, err = s.env.workspaces.AcceptInviteByToken(s.ctx, s.bob.ID, token)
	s.Require().NoError(err)
	s.False(result.Joined)
	s.Equal(2, s.memberCount(ws.ID))

	// The owner accepting keeps the owner role.
	result, err = s.env.workspaces.AcceptInviteByToken(s.ctx, s.alice.ID, token)
	s.Require().NoError(err)
	s.False(result.Joined)
	s.Equal(models.RoleOwner, result.Role)

	// The same token still admits a different user until it expires.
	result, err = s.env.workspaces.AcceptInviteByToken(s.ctx, s.carol.ID, token)
	s.Require().NoError(err)
	s.True(result.Joined)
	s.Equal(3, s.memberCount(ws.ID))
}

func (s *WorkspaceServiceTestSuite) TestAcceptInviteByToken_Invalid() {
	_, err := s.env.workspaces.AcceptInviteByToken(s.ctx, s.bob.ID, "garbage")
	s.ErrorIs(err, ErrInvalidInviteToken)
	s.Equal(apierrors.KindInvalidToken, apierrors.KindOf(err))

	session, err := s.env.jwt.GenerateToken(s.bob.ID, s.bob.Email)
	s.Require().NoError(err)
	_, err = s.env.workspaces.AcceptInviteByToken(s.ctx, s.bob.ID, session)
	s.ErrorIs(err, ErrInvalidInviteToken)
}

func (s *WorkspaceServiceTestSuite) TestAcceptInviteByToken_Expired() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")

	issuedAt := time.Now()
	clock := issuedAt
	s.env.invites.WithClock(func() time.Time { return clock })
	token, _, err := s.env.invites.Issue(ws.ID, string(models.RoleMember), s.alice.ID)
	s.Require().NoError(err)

	clock = issuedAt.Add(constants.InviteTokenTTL + 2*time.Second)
	_, err = s.env.workspaces.AcceptInviteByToken(s.ctx, s.bob.ID, token)
	s.ErrorIs(err, ErrInvalidInviteToken)
	s.Equal(1, s.memberCount(ws.ID))
}

func (s *WorkspaceServiceTestSuite) TestAcceptInviteByToken_WorkspaceDeleted() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")
	link, err := s.env.workspaces.GenerateInviteLink(s.ctx, s.alice.ID, ws.ID, models.RoleMember)
	s.Require().NoError(err)
	s.Require().NoError(s.env.workspaces.DeleteWorkspace(s.ctx, s.alice.ID, ws.ID))

	_, err = s.env.workspaces.AcceptInviteByToken(s.ctx, s.bob.ID, tokenFromLink(s.T(), link.URL))
	s.ErrorIs(err, ErrWorkspaceNotFound)
}

func (s *WorkspaceServiceTestSuite) TestAcceptInviteByToken_Concurrent() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")
	link, err := s.env.workspaces.GenerateInviteLink(s.ctx, s.alice.ID, ws.ID, models.RoleMember)
	s.Require().NoError(err)
	token := tokenFromLink(s.T(), link.URL)

	// Serialized by the single sqlite connection; covers repeated accepts
	// racing through the service, not parallel inserts on the server.
	const workers = 12
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.env.workspaces.AcceptInviteByToken(context.Background(), s.bob.ID, token)
			if !assert.NoError(s.T(), err) {
				return
			}
			if result.Joined {
				mu.Lock()
				joined++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, joined)
	s.Equal(2, s.memberCount(ws.ID))
}

func (s *WorkspaceServiceTestSuite) TestStandingInviteLink() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")

	_, err := s.env.workspaces.AcceptGeneratedInvite(s.ctx, s.bob.ID, ws.ID)
	s.ErrorIs(err, ErrNoStandingInvite)
	s.Equal(apierrors.KindNotFound, apierrors.KindOf(err))

	invite, err := s.env.workspaces.EnableInviteLink(s.ctx, s.alice.ID, ws.ID, models.RoleViewer)
	s.Require().NoError(err)
	s.Equal(models.RoleViewer, invite.Role)
	s.Regexp(`^[A-Z2-7]{4}(-[A-Z2-7]{4}){3}$`, invite.Code)

	result, err := s.env.workspaces.AcceptGeneratedInvite(s.ctx, s.bob.ID, ws.ID)
	s.Require().NoError(err)
	s.True(result.Joined)
	s.Equal(models.RoleViewer, result.Role)

	result, err = s.env.workspaces.AcceptGeneratedInvite(s.ctx, s.bob.ID, ws.ID)
	s.Require().NoError(err)
	s.False(result.Joined)

	result, err = s.env.workspaces.JoinByInviteCode(s.ctx, s.carol.ID, invite.Code)
	s.Require().NoError(err)
	s.True(result.Joined)
	s.Equal(3, s.memberCount(ws.ID))

	// Rotating invalidates the old code.
	rotated, err := s.env.workspaces.EnableInviteLink(s.ctx, s.alice.ID, ws.ID, models.RoleMember)
	s.Require().NoError(err)
	s.NotEqual(invite.Code, rotated.Code)
	dave := s.env.user(s.T(), "Dave")
	_, err = s.env.workspaces.JoinByInviteCode(s.ctx, dave.ID, invite.Code)
	s.ErrorIs(err, ErrInvalidInviteCode)

	// Members cannot manage the link.
	_, err = s.env.workspaces.EnableInviteLink(s.ctx, s.bob.ID, ws.ID, models.RoleMember)
	s.ErrorIs(err, ErrInsufficientRole)

	s.Require().NoError(s.env.workspaces.DisableInviteLink(s.ctx, s.alice.ID, ws.ID))
	_, err = s.env.workspaces.AcceptGeneratedInvite(s.ctx, dave.ID, ws.ID)
	s.ErrorIs(err, ErrNoStandingInvite)
	_, err = s.env.workspaces.GetInviteLink(s.ctx, s.alice.ID, ws.ID)
	s.ErrorIs(err, ErrNoStandingInvite)
}

func (s *WorkspaceServiceTestSuite) TestChangeRole() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")
	s.joinAs(ws, s.bob, models.RoleMember)
	s.joinAs(ws, s.carol, models.RoleAdmin)

	member, err := s.env.workspaces.ChangeRole(s.ctx, s.carol.ID, ws.ID, s.bob.ID, models.RoleViewer)
	s.Require().NoError(err)
	s.Equal(models.RoleViewer, member.Role)

	_, err = s.env.workspaces.ChangeRole(s.ctx, s.bob.ID, ws.ID, s.carol.ID, models.RoleViewer)
	s.ErrorIs(err, ErrInsufficientRole)

	_, err = s.env.workspaces.ChangeRole(s.ctx, s.carol.ID, ws.ID, s.alice.ID, models.RoleMember)
	s.ErrorIs(err, ErrOwnerRoleImmutable)

	_, err = s.env.workspaces.ChangeRole(s.ctx, s.alice.ID, ws.ID, s.bob.ID, models.RoleOwner)
	s.ErrorIs(err, ErrInvalidWorkspaceRole)

	stranger := s.env.user(s.T(), "Stranger")
	_, err = s.env.workspaces.ChangeRole(s.ctx, s.alice.ID, ws.ID, stranger.ID, models.RoleMember)
	s.ErrorIs(err, ErrMemberNotFound)

	details, err := s.env.workspaces.GetWorkspaceDetails(s.ctx, s.alice.ID, ws.ID)
	s.Require().NoError(err)
	owners := 0
	for _, m := range details.Members {
		if m.Role == models.RoleOwner {
			owners++
			s.Equal(ws.OwnerID, m.UserID)
		}
	}
	s.Equal(1, owners)
}

func (s *WorkspaceServiceTestSuite) TestRemoveMemberAndLeave() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")
	s.joinAs(ws, s.bob, models.RoleMember)
	s.joinAs(ws, s.carol, models.RoleAdmin)

	s.ErrorIs(s.env.workspaces.RemoveMember(s.ctx, s.carol.ID, ws.ID, s.alice.ID), ErrCannotRemoveOwner)
	s.ErrorIs(s.env.workspaces.RemoveMember(s.ctx, s.carol.ID, ws.ID, s.carol.ID), ErrCannotRemoveYourself)
	s.ErrorIs(s.env.workspaces.RemoveMember(s.ctx, s.bob.ID, ws.ID, s.carol.ID), ErrInsufficientRole)

	s.Require().NoError(s.env.workspaces.RemoveMember(s.ctx, s.carol.ID, ws.ID, s.bob.ID))
	_, err := s.env.workspaces.GetWorkspaceDetails(s.ctx, s.bob.ID, ws.ID)
	s.ErrorIs(err, ErrNotWorkspaceMember)

	s.ErrorIs(s.env.workspaces.LeaveWorkspace(s.ctx, s.alice.ID, ws.ID), ErrOwnerCannotLeave)
	s.Require().NoError(s.env.workspaces.LeaveWorkspace(s.ctx, s.carol.ID, ws.ID))
	s.Equal(1, s.memberCount(ws.ID))
}

func (s *WorkspaceServiceTestSuite) TestUpdateAndDeleteWorkspace() {
	ws := s.env.workspace(s.T(), s.alice, "Acme")
	s.joinAs(ws, s.bob, models.RoleAdmin)

	name := "Acme Corp"
	updated, err := s.env.workspaces.UpdateWorkspace(s.ctx, s.bob.ID, ws.ID, UpdateWorkspaceInput{Name: &name})
	s.Require().NoError(err)
	s.Equal("Acme Corp", updated.Name)

	short := "ab"
	_, err = s.env.workspaces.UpdateWorkspace(s.ctx, s.alice.ID, ws.ID, UpdateWorkspaceInput{Name: &short})
	s.ErrorIs(err, ErrInvalidWorkspaceName)

	s.ErrorIs(s.env.workspaces.DeleteWorkspace(s.ctx, s.bob.ID, ws.ID), ErrOwnerOnly)
	s.Require().NoError(s.env.workspaces.DeleteWorkspace(s.ctx, s.alice.ID, ws.ID))

	_, err = s.env.workspaces.GetWorkspaceDetails(s.ctx, s.alice.ID, ws.ID)
	s.ErrorIs(err, ErrWorkspaceNotFound)
}

// TestAcmeScenario walks the canonical invite flow end to end.
func (s *WorkspaceServiceTestSuite) TestAcmeScenario() {
	acme := s.env.workspace(s.T(), s.alice, "Acme")

	details, err := s.env.workspaces.GetWorkspaceDetails(s.ctx, s.alice.ID, acme.ID)
	s.Require().NoError(err)
	s.Require().Len(details.Members, 1)
	s.Equal(models.RoleOwner, details.Members[0].Role)

	// contributor is a project role, not a workspace role.
	_, err = s.env.workspaces.GenerateInviteLink(s.ctx, s.alice.ID, acme.ID, "contributor")
	s.ErrorIs(err, ErrInvalidWorkspaceRole)

	link, err := s.env.workspaces.GenerateInviteLink(s.ctx, s.alice.ID, acme.ID, models.RoleMember)
	s.Require().NoError(err)

	_, err = s.env.workspaces.AcceptInviteByToken(s.ctx, s.bob.ID, tokenFromLink(s.T(), link.URL))
	s.Require().NoError(err)

	details, err = s.env.workspaces.GetWorkspaceDetails(s.ctx, s.alice.ID, acme.ID)
	s.Require().NoError(err)
	s.Require().Len(details.Members, 2)
	s.Equal(s.bob.ID, details.Members[1].UserID)
	s.Equal(models.RoleMember, details.Members[1].Role)

	_, err = s.env.workspaces.GenerateInviteLink(s.ctx, s.carol.ID, acme.ID, models.RoleMember)
	s.ErrorIs(err, ErrNotWorkspaceMember)
	s.Equal(apierrors.KindForbidden, apierrors.KindOf(err))
}

func (s *WorkspaceServiceTestSuite) joinAs(ws *models.Workspace, user *models.User, role models.WorkspaceRole) {
	link, err := s.env.workspaces.GenerateInviteLink(s.ctx, ws.OwnerID, ws.ID, role)
	s.Require().NoError(err)
	_, err = s.env.workspaces.AcceptInviteByToken(s.ctx, user.ID, tokenFromLink(s.T(), link.URL))
	s.Require().NoError(err)
}

func TestWorkspaceService_ActivityRecorded(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.user(t, "Alice")
	ws := env.workspace(t, alice, "Acme")

	entries, err := env.activity.List(ctx, models.ResourceWorkspace, ws.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionCreatedWorkspace, entries[0].Action)
}
