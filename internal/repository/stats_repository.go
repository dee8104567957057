package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormStatsRepository is a GORM implementation of StatsRepository. Every task
// query excludes archived tasks.
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &GormStatsRepository{db: db}
}

type groupCount struct {
	Bucket string
	Total  int64
}

func (r *GormStatsRepository) openTasks(ctx context.Context, workspaceID uint64) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Task{}).
		Where("workspace_id = ? AND is_archived = ?", workspaceID, false)
}

// CountProjectsByStatus groups the workspace's projects by status
func (r *GormStatsRepository) CountProjectsByStatus(ctx context.Context, workspaceID uint64) (map[models.ProjectStatus]int64, error) {
	var rows []groupCount
	if err := r.db.WithContext(ctx).Model(&models.Project{}).
		Select("status AS bucket, COUNT(*) AS total").
		Where("workspace_id = ?", workspaceID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[models.ProjectStatus]int64, len(rows))
	for _, row := range rows {
		out[models.ProjectStatus(row.Bucket)] = row.Total
	}
	return out, nil
}

// CountTasksByStatus groups non-archived tasks by status
func (r *GormStatsRepository) CountTasksByStatus(ctx context.Context, workspaceID uint64) (map[models.TaskStatus]int64, error) {
	var rows []groupCount
	if err := r.openTasks(ctx, workspaceID).
		Select("status AS bucket, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[models.TaskStatus]int64, len(rows))
	for _, row := range rows {
		out[models.TaskStatus(row.Bucket)] = row.Total
	}
	return out, nil
}

// CountTasksByPriority groups non-archived tasks by priority
func (r *GormStatsRepository) CountTasksByPriority(ctx context.Context, workspaceID uint64) (map[models.TaskPriority]int64, error) {
	var rows []groupCount
	if err := r.openTasks(ctx, workspaceID).
		Select("priority AS bucket, COUNT(*) AS total").
		Group("priority").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[models.TaskPriority]int64, len(rows))
	for _, row := range rows {
		out[models.TaskPriority(row.Bucket)] = row.Total
	}
	return out, nil
}

// TaskTimestampsSince returns creation and completion times of tasks created
// or completed at or after since. Bucketing by day happens in the caller so
// the query stays portable across dialects.
func (r *GormStatsRepository) TaskTimestampsSince(ctx context.Context, workspaceID uint64, since time.Time) ([]TaskTimestamps, error) {
	var rows []TaskTimestamps
	if err := r.openTasks(ctx, workspaceID).
		Select("created_at, completed_at").
		Where("created_at >= ? OR completed_at >= ?", since, since).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ProjectProgress returns total and completed task counts per project
func (r *GormStatsRepository) ProjectProgress(ctx context.Context, workspaceID uint64) ([]ProjectProgressRow, error) {
	var rows []ProjectProgressRow
	if err := r.openTasks(ctx, workspaceID).
		Select("project_id, COUNT(*) AS total, COUNT(CASE WHEN status = ? THEN 1 END) AS completed", models.TaskStatusDone).
		Group("project_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RecentProjects returns the most recently updated projects
func (r *GormStatsRepository) RecentProjects(ctx context.Context, workspaceID uint64, limit int) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// UpcomingTasks returns open tasks due in [from, to), soonest first
func (r *GormStatsRepository) UpcomingTasks(ctx context.Context, workspaceID uint64, from, to time.Time, limit int) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Preload("Project").
		Where("workspace_id = ? AND is_archived = ?", workspaceID, false).
		Where("status <> ?", models.TaskStatusDone).
		Where("due_date >= ? AND due_date < ?", from, to).
		Order("due_date ASC, id ASC").
		Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
