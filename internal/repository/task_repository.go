package repository

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	// Apply preloading if specified
	for _, p := range preload {
		if p == "Subtasks" {
			query = query.Preload("Subtasks", func(db *gorm.DB) *gorm.DB {
				return db.Order("position ASC")
			})
			continue
		}
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{})

	// Apply filters
	if filter.WorkspaceID != nil {
		query = query.Where("tasks.workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if !filter.IncludeArchived {
		query = query.Where("tasks.is_archived = ?", false)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.AssignedUserID != nil {
		assignmentSubQuery := r.db.Model(&models.TaskAssignment{}).
			Select("1").
			Where("task_assignments.task_id = tasks.id").
			Where("task_assignments.user_id = ?", *filter.AssignedUserID).
			Where("task_assignments.deleted_at IS NULL")
		query = query.Where("EXISTS (?)", assignmentSubQuery)
	}
	if filter.DueDateFrom != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueDateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query
	if filter.SortByDueDate {
		listQuery = listQuery.Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC")
	} else {
		listQuery = listQuery.Order("tasks.created_at DESC, tasks.id DESC")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	if err := listQuery.Preload("Creator").Preload("Assignments.User").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

// AssignUsers assigns multiple users to a task, reviving soft-deleted assignments
func (r *GormTaskRepository) AssignUsers(ctx context.Context, taskID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}

	assignments := make([]models.TaskAssignment, len(userIDs))

	for i, userID := range userIDs {
		assignments[i] = models.TaskAssignment{
			TaskID: taskID,
			UserID: userID,
		}
	}

	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"deleted_at": gorm.Expr("NULL")}),
		}).
		Create(&assignments).Error
}

// UnassignUsers removes user assignments from a task
func (r *GormTaskRepository) UnassignUsers(ctx context.Context, taskID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("task_id = ? AND user_id IN ?", taskID, userIDs).
		Delete(&models.TaskAssignment{}).Error
}

// AddWatcher adds a watcher, ignoring duplicates
func (r *GormTaskRepository) AddWatcher(ctx context.Context, taskID, userID uint64) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.TaskWatcher{TaskID: taskID, UserID: userID}).Error
}

// RemoveWatcher removes a watcher
func (r *GormTaskRepository) RemoveWatcher(ctx context.Context, taskID, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Delete(&models.TaskWatcher{}).Error
}

// CountProjectMembers counts how many of the given users are members of the project
func (r *GormTaskRepository) CountProjectMembers(ctx context.Context, projectID uint64, userIDs []uint64) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id IN ?", projectID, userIDs).
		Count(&count).Error

	return count, err
}

// CreateSubtask appends a subtask at the end of the task's checklist
func (r *GormTaskRepository) CreateSubtask(ctx context.Context, subtask *models.Subtask) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int
		if err := tx.Model(&models.Subtask{}).
			Where("task_id = ?", subtask.TaskID).
			Select("COALESCE(MAX(position), 0) + 1").
			Scan(&next).Error; err != nil {
			return err
		}
		subtask.Position = next
		return tx.Create(subtask).Error
	})
}

// FindSubtask finds a subtask of a task
func (r *GormTaskRepository) FindSubtask(ctx context.Context, taskID, subtaskID uint64) (*models.Subtask, error) {
	var subtask models.Subtask
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND id = ?", taskID, subtaskID).
		First(&subtask).Error; err != nil {
		return nil, err
	}
	return &subtask, nil
}

// UpdateSubtask saves a subtask
func (r *GormTaskRepository) UpdateSubtask(ctx context.Context, subtask *models.Subtask) error {
	return r.db.WithContext(ctx).Save(subtask).Error
}

// CreateComment stores a comment
func (r *GormTaskRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

// ListComments lists the comments of a task, oldest first
func (r *GormTaskRepository) ListComments(ctx context.Context, taskID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
