package repository

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a project and its member rows in one transaction
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	members := project.Members
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		for i := range members {
			members[i].ProjectID = project.ID
		}
		return tx.Omit(clause.Associations).Create(&members).Error
	})
}

// FindByID finds a project by ID with optional preloading
func (r *GormProjectRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Project, error) {
	var project models.Project
	query := r.db.WithContext(ctx)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ListByWorkspace lists the projects of a workspace, newest first
func (r *GormProjectRepository) ListByWorkspace(ctx context.Context, workspaceID uint64) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).
		Preload("Members").
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC, id DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Update saves project fields
func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}

// FindMember finds a project member
func (r *GormProjectRepository) FindMember(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error) {
	var member models.ProjectMember
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// UpsertMembers adds members or updates their roles
func (r *GormProjectRepository) UpsertMembers(ctx context.Context, members []models.ProjectMember) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(&members).Error
}
