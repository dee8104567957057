package services

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/testutil"
	"gorm.io/gorm"
)

const testFrontendURL = "http://localhost:5173"

type testEnv struct {
	db         *gorm.DB
	invites    *auth.InviteTokens
	jwt        *auth.JWTService
	activity   *ActivityService
	users      *AuthService
	workspaces *WorkspaceService
	projects   *ProjectService
	tasks      *TaskService
	stats      *StatsService
}

func newTestEnv(t *testing.T, ai TaskGenerator) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	log := testutil.Logger()

	invites := auth.NewInviteTokens([]byte("invite-secret"), constants.InviteTokenTTL)
	jwtSvc := auth.NewJWTService([]byte("session-secret"), constants.SessionTokenTTL)

	activity := NewActivityService(repository.NewActivityRepository(db), log)
	workspaces := NewWorkspaceService(repository.NewWorkspaceRepository(db), invites, activity, testFrontendURL, log)
	projects := NewProjectService(repository.NewProjectRepository(db), workspaces, activity)

	return &testEnv{
		db:         db,
		invites:    invites,
		jwt:        jwtSvc,
		activity:   activity,
		users:      NewAuthService(repository.NewUserRepository(db), jwtSvc, log),
		workspaces: workspaces,
		projects:   projects,
		tasks:      NewTaskService(repository.NewTaskRepository(db), projects, activity, ai),
		stats:      NewStatsService(repository.NewStatsRepository(db), repository.NewProjectRepository(db), workspaces),
	}
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	return testutil.CreateUser(t, e.db, strings.ToLower(name)+"@example.com", name)
}

func (e *testEnv) workspace(t *testing.T, owner *models.User, name string) *models.Workspace {
	t.Helper()
	ws, err := e.workspaces.CreateWorkspace(context.Background(), owner.ID, CreateWorkspaceInput{Name: name, Color: "#4f46e5"})
	require.NoError(t, err)
	return ws
}

// join adds user to ws with role through a freshly issued invite.
func (e *testEnv) join(t *testing.T, ws *models.Workspace, user *models.User, role models.WorkspaceRole) {
	t.Helper()
	ctx := context.Background()
	link, err := e.workspaces.GenerateInviteLink(ctx, ws.OwnerID, ws.ID, role)
	require.NoError(t, err)
	_, err = e.workspaces.AcceptInviteByToken(ctx, user.ID, tokenFromLink(t, link.URL))
	require.NoError(t, err)
}

// tokenFromLink extracts the tk query parameter from an invitation URL.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("tk")
	require.NotEmpty(t, token)
	return token
}
