// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewDB opens a migrated sqlite database in a temp dir. The file is removed
// when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.Config{
		DB:  config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")},
		Log: config.LogConfig{Level: "error"},
	}
	db, err := database.Open(cfg, Logger())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db, Logger()))
	return db
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t testing.TB, db *gorm.DB, email, name string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: name, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateWorkspace inserts a workspace owned by owner together with the owner roster entry.
func CreateWorkspace(t testing.TB, db *gorm.DB, owner *models.User, name string) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{Name: name, Color: "#4f46e5", OwnerID: owner.ID}
	require.NoError(t, db.Omit("Owner", "Members", "Projects").Create(ws).Error)
	require.NoError(t, db.Omit("Workspace", "User").Create(&models.WorkspaceMember{
		WorkspaceID: ws.ID,
		UserID:      owner.ID,
		Role:        models.RoleOwner,
		JoinedAt:    time.Now(),
	}).Error)
	return ws
}

// AddMember inserts a roster entry.
func AddMember(t testing.TB, db *gorm.DB, ws *models.Workspace, user *models.User, role models.WorkspaceRole) {
	t.Helper()
	require.NoError(t, db.Omit("Workspace", "User").Create(&models.WorkspaceMember{
		WorkspaceID: ws.ID,
		UserID:      user.ID,
		Role:        role,
		JoinedAt:    time.Now(),
	}).Error)
}

// CreateProject inserts a project in ws with the given members.
func CreateProject(t testing.TB, db *gorm.DB, ws *models.Workspace, creator *models.User, title string, members ...models.ProjectMember) *models.Project {
	t.Helper()
	project := &models.Project{
		WorkspaceID: ws.ID,
		Title:       title,
		Status:      models.ProjectStatusActive,
		CreatorID:   creator.ID,
	}
	require.NoError(t, db.Omit("Workspace", "Members", "Tasks").Create(project).Error)
	for _, m := range members {
		m.ProjectID = project.ID
		require.NoError(t, db.Omit("User").Create(&m).Error)
	}
	return project
}

// CreateTask inserts a task in project.
func CreateTask(t testing.TB, db *gorm.DB, project *models.Project, creator *models.User, title string, mutate ...func(*models.Task)) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:       title,
		Status:      models.TaskStatusTodo,
		Priority:    models.TaskPriorityMedium,
		CreatorID:   creator.ID,
		ProjectID:   project.ID,
		WorkspaceID: project.WorkspaceID,
	}
	for _, fn := range mutate {
		fn(task)
	}
	require.NoError(t, db.Omit("Creator", "Project", "Assignments", "Watchers", "Subtasks").Create(task).Error)
	return task
}
