package services

import (
	"context"
	"math"
	"time"

	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"golang.org/x/sync/errgroup"
)

// StatsService computes the workspace dashboard. It never mutates state.
type StatsService struct {
	stats      repository.StatsRepository
	projects   repository.ProjectRepository
	workspaces *WorkspaceService
	now        func() time.Time
}

// NewStatsService creates a new StatsService.
func NewStatsService(stats repository.StatsRepository, projects repository.ProjectRepository, workspaces *WorkspaceService) *StatsService {
	return &StatsService{
		stats:      stats,
		projects:   projects,
		workspaces: workspaces,
		now:        time.Now,
	}
}

// StatsTotals are the headline counters.
type StatsTotals struct {
	TotalProjects           int64
	TotalTasks              int64
	TotalProjectsInProgress int64
	TotalTasksCompleted     int64
	TotalTasksToDo          int64
	TotalTasksInProgress    int64
}

// StatusCount is one slice of the project status chart.
type StatusCount struct {
	Name  models.ProjectStatus
	Value int64
}

// TrendPoint holds the tasks created and completed on one day.
type TrendPoint struct {
	Date      time.Time
	Created   int64
	Completed int64
}

// ProjectProgress is the completion ratio of one project.
type ProjectProgress struct {
	ProjectID  uint64
	Title      string
	Total      int64
	Completed  int64
	Percentage int
}

// WorkspaceStats is the dashboard payload.
type WorkspaceStats struct {
	Totals          StatsTotals
	TasksByStatus   map[models.TaskStatus]int64
	TasksByPriority map[models.TaskPriority]int64
	ProjectStatus   []StatusCount
	TaskTrends      []TrendPoint
	ProjectProgress []ProjectProgress
	RecentProjects  []models.Project
	UpcomingTasks   []models.Task
}

// GetWorkspaceStats aggregates projects and non-archived tasks of a workspace.
// A workspace without projects yields zeroed counters and empty lists.
func (s *StatsService) GetWorkspaceStats(ctx context.Context, requesterID, workspaceID uint64) (*WorkspaceStats, error) {
	if _, _, err := s.workspaces.Authorize(ctx, requesterID, workspaceID); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { metrics.StatsDuration.Observe(time.Since(start).Seconds()) }()

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	trendStart := today.AddDate(0, 0, -(constants.TrendDays - 1))

	var (
		projectsByStatus map[models.ProjectStatus]int64
		tasksByStatus    map[models.TaskStatus]int64
		tasksByPriority  map[models.TaskPriority]int64
		stamps           []repository.TaskTimestamps
		progressRows     []repository.ProjectProgressRow
		allProjects      []models.Project
		recent           []models.Project
		upcoming         []models.Task
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projectsByStatus, err = s.stats.CountProjectsByStatus(gctx, workspaceID)
		return err
	})
	g.Go(func() error {
		var err error
		tasksByStatus, err = s.stats.CountTasksByStatus(gctx, workspaceID)
		return err
	})
	g.Go(func() error {
		var err error
		tasksByPriority, err = s.stats.CountTasksByPriority(gctx, workspaceID)
		return err
	})
	g.Go(func() error {
		var err error
		stamps, err = s.stats.TaskTimestampsSince(gctx, workspaceID, trendStart)
		return err
	})
	g.Go(func() error {
		var err error
		progressRows, err = s.stats.ProjectProgress(gctx, workspaceID)
		return err
	})
	g.Go(func() error {
		var err error
		allProjects, err = s.projects.ListByWorkspace(gctx, workspaceID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.stats.RecentProjects(gctx, workspaceID, constants.RecentProjectsLimit)
		return err
	})
	g.Go(func() error {
		var err error
		upcoming, err = s.stats.UpcomingTasks(gctx, workspaceID, now, now.Add(constants.UpcomingTaskWindow), constants.UpcomingTaskLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apierrors.Internal("failed to aggregate workspace stats", err)
	}

	out := &WorkspaceStats{
		TasksByStatus:   make(map[models.TaskStatus]int64, len(models.TaskStatuses)),
		TasksByPriority: make(map[models.TaskPriority]int64, len(models.TaskPriorities)),
		ProjectStatus:   make([]StatusCount, 0, len(models.ProjectStatuses)),
		TaskTrends:      buildTrends(stamps, trendStart, constants.TrendDays),
		ProjectProgress: make([]ProjectProgress, 0, len(allProjects)),
		RecentProjects:  nonNilProjects(recent),
		UpcomingTasks:   nonNilTasks(upcoming),
	}

	for _, status := range models.TaskStatuses {
		n := tasksByStatus[status]
		out.TasksByStatus[status] = n
		out.Totals.TotalTasks += n
	}
	for _, priority := range models.TaskPriorities {
		out.TasksByPriority[priority] = tasksByPriority[priority]
	}
	for _, status := range models.ProjectStatuses {
		n := projectsByStatus[status]
		out.ProjectStatus = append(out.ProjectStatus, StatusCount{Name: status, Value: n})
		out.Totals.TotalProjects += n
	}

	out.Totals.TotalProjectsInProgress = projectsByStatus[models.ProjectStatusActive]
	out.Totals.TotalTasksCompleted = tasksByStatus[models.TaskStatusDone]
	out.Totals.TotalTasksToDo = tasksByStatus[models.TaskStatusTodo]
	out.Totals.TotalTasksInProgress = tasksByStatus[models.TaskStatusInProgress]

	byProject := make(map[uint64]repository.ProjectProgressRow, len(progressRows))
	for _, row := range progressRows {
		byProject[row.ProjectID] = row
	}
	for _, p := range allProjects {
		row := byProject[p.ID]
		out.ProjectProgress = append(out.ProjectProgress, ProjectProgress{
			ProjectID:  p.ID,
			Title:      p.Title,
			Total:      row.Total,
			Completed:  row.Completed,
			Percentage: percentage(row.Completed, row.Total),
		})
	}

	return out, nil
}

// buildTrends buckets creation and completion times into days starting at
// start, oldest first.
func buildTrends(stamps []repository.TaskTimestamps, start time.Time, days int) []TrendPoint {
	points := make([]TrendPoint, days)
	for i := range points {
		points[i].Date = start.AddDate(0, 0, i)
	}

	bucket := func(t time.Time) int {
		t = t.In(start.Location())
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, start.Location())
		for i := range points {
			if points[i].Date.Equal(day) {
				return i
			}
		}
		return -1
	}

	for _, st := range stamps {
		if i := bucket(st.CreatedAt); i >= 0 {
			points[i].Created++
		}
		if st.CompletedAt != nil {
			if i := bucket(*st.CompletedAt); i >= 0 {
				points[i].Completed++
			}
		}
	}
	return points
}

func percentage(completed, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

func nonNilProjects(p []models.Project) []models.Project {
	if p == nil {
		return []models.Project{}
	}
	return p
}

func nonNilTasks(t []models.Task) []models.Task {
	if t == nil {
		return []models.Task{}
	}
	return t
}
