package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/testutil"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestStatsService_EmptyWorkspace(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "Alice")
	ws := env.workspace(t, alice, "Empty")

	stats, err := env.stats.GetWorkspaceStats(context.Background(), alice.ID, ws.ID)
	require.NoError(t, err)

	assert.Equal(t, StatsTotals{}, stats.Totals)
	assert.Len(t, stats.TasksByStatus, len(models.TaskStatuses))
	assert.Len(t, stats.TasksByPriority, len(models.TaskPriorities))
	for _, n := range stats.TasksByStatus {
		assert.Zero(t, n)
	}
	require.Len(t, stats.ProjectStatus, len(models.ProjectStatuses))
	for _, sc := range stats.ProjectStatus {
		assert.Zero(t, sc.Value)
	}
	require.Len(t, stats.TaskTrends, constants.TrendDays)
	for _, p := range stats.TaskTrends {
		assert.Zero(t, p.Created)
		assert.Zero(t, p.Completed)
	}
	assert.NotNil(t, stats.ProjectProgress)
	assert.Empty(t, stats.ProjectProgress)
	assert.NotNil(t, stats.RecentProjects)
	assert.Empty(t, stats.RecentProjects)
	assert.NotNil(t, stats.UpcomingTasks)
	assert.Empty(t, stats.UpcomingTasks)
}

func TestStatsService_Aggregates(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.user(t, "Alice")
	bob := env.user(t, "Bob")
	ws := env.workspace(t, alice, "Acme")
	env.join(t, ws, bob, models.RoleViewer)

	launch, err := env.projects.CreateProject(ctx, alice.ID, ws.ID, CreateProjectInput{Title: "Launch", Status: models.ProjectStatusActive})
	require.NoError(t, err)
	_, err = env.projects.CreateProject(ctx, alice.ID, ws.ID, CreateProjectInput{Title: "Backlog"})
	require.NoError(t, err)

	tomorrow := time.Now().Add(24 * time.Hour)
	nextMonth := time.Now().AddDate(0, 1, 0)
	_, err = env.tasks.CreateTask(ctx, alice.ID, launch.ID, CreateTaskInput{Title: "Soon", DueDate: &tomorrow, Priority: models.TaskPriorityHigh})
	require.NoError(t, err)
	_, err = env.tasks.CreateTask(ctx, alice.ID, launch.ID, CreateTaskInput{Title: "Later", DueDate: &nextMonth})
	require.NoError(t, err)
	_, err = env.tasks.CreateTask(ctx, alice.ID, launch.ID, CreateTaskInput{Title: "Shipped", Status: models.TaskStatusDone})
	require.NoError(t, err)
	archived, err := env.tasks.CreateTask(ctx, alice.ID, launch.ID, CreateTaskInput{Title: "Old", Status: models.TaskStatusInProgress})
	require.NoError(t, err)
	_, err = env.tasks.ToggleArchive(ctx, alice.ID, archived.ID)
	require.NoError(t, err)

	// Viewers may read the dashboard.
	stats, err := env.stats.GetWorkspaceStats(ctx, bob.ID, ws.ID)
	require.NoError(t, err)

	assert.Equal(t, StatsTotals{
		TotalProjects:           2,
		TotalTasks:              3,
		TotalProjectsInProgress: 1,
		TotalTasksCompleted:     1,
		TotalTasksToDo:          2,
		TotalTasksInProgress:    0,
	}, stats.Totals)
	assert.EqualValues(t, 1, stats.TasksByPriority[models.TaskPriorityHigh])
	assert.EqualValues(t, 2, stats.TasksByPriority[models.TaskPriorityMedium])

	today := stats.TaskTrends[len(stats.TaskTrends)-1]
	assert.EqualValues(t, 3, today.Created)
	assert.EqualValues(t, 1, today.Completed)

	require.Len(t, stats.ProjectProgress, 2)
	for _, p := range stats.ProjectProgress {
		if p.ProjectID == launch.ID {
			assert.EqualValues(t, 3, p.Total)
			assert.EqualValues(t, 1, p.Completed)
			assert.Equal(t, 33, p.Percentage)
		} else {
			assert.Zero(t, p.Percentage)
		}
	}

	require.Len(t, stats.UpcomingTasks, 1)
	assert.Equal(t, "Soon", stats.UpcomingTasks[0].Title)
	assert.Len(t, stats.RecentProjects, 2)
}

func TestStatsService_NonMember(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "Alice")
	carol := env.user(t, "Carol")
	ws := env.workspace(t, alice, "Acme")

	_, err := env.stats.GetWorkspaceStats(context.Background(), carol.ID, ws.ID)
	assert.ErrorIs(t, err, ErrNotWorkspaceMember)
	assert.Equal(t, apierrors.KindForbidden, apierrors.KindOf(err))
}

func TestBuildTrends(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	completed := start.Add(50 * time.Hour)
	stamps := []repository.TaskTimestamps{
		{CreatedAt: start.Add(time.Hour)},
		{CreatedAt: start.Add(25 * time.Hour), CompletedAt: &completed},
		{CreatedAt: start.Add(-time.Hour)},
	}

	points := buildTrends(stamps, start, 3)
	require.Len(t, points, 3)
	assert.EqualValues(t, 1, points[0].Created)
	assert.EqualValues(t, 1, points[1].Created)
	assert.EqualValues(t, 1, points[2].Completed)
	assert.Equal(t, start.AddDate(0, 0, 2), points[2].Date)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, percentage(0, 0))
	assert.Equal(t, 67, percentage(2, 3))
	assert.Equal(t, 100, percentage(4, 4))
}

// A failing store surfaces as an internal error, never as not found.
func TestWorkspaceService_StoreFailureIsInternal(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT .* FROM "workspaces"`).WillReturnError(errors.New("connection refused"))

	log := testutil.Logger()
	activity := NewActivityService(repository.NewActivityRepository(db), log)
	svc := NewWorkspaceService(
		repository.NewWorkspaceRepository(db),
		auth.NewInviteTokens([]byte("invite-secret"), constants.InviteTokenTTL),
		activity, testFrontendURL, log,
	)

	_, err = svc.GetWorkspaceDetails(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Equal(t, apierrors.KindInternal, apierrors.KindOf(err))
	assert.NotErrorIs(t, err, ErrWorkspaceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
