package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

type indexSpec struct {
	model   interface{}
	name    string
	columns string
}

// secondaryIndexes are the query paths of roster lookups, project listing and
// dashboard aggregation.
var secondaryIndexes = []indexSpec{
	// Roster lookups by user ("my workspaces")
	{&models.WorkspaceMember{}, "idx_workspace_members_user_id", "user_id"},

	// Dashboard aggregation
	{&models.Task{}, "idx_tasks_workspace_status", "workspace_id, status"},
	{&models.Task{}, "idx_tasks_due_date", "due_date"},
	{&models.Task{}, "idx_tasks_created_at", "created_at"},
	{&models.Project{}, "idx_projects_workspace_updated", "workspace_id, updated_at"},

	// Task relations
	{&models.TaskAssignment{}, "idx_task_assignments_user_id", "user_id"},
	{&models.Comment{}, "idx_comments_task_created", "task_id, created_at"},
}

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB, log *slog.Logger) error {
	migrator := db.Migrator()

	for _, idx := range secondaryIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to resolve table for index %s: %w", idx.name, err)
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, stmt.Schema.Table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index", slog.String("index", idx.name), slog.String("table", stmt.Schema.Table))
	}

	return nil
}
