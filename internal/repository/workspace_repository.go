package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrCreateWorkspace is returned when creating the workspace row fails inside the create transaction.
	ErrCreateWorkspace = errors.New("workspace repository: create workspace failed")
	// ErrCreateOwnerMember is returned when creating the owner roster entry fails inside the create transaction.
	ErrCreateOwnerMember = errors.New("workspace repository: create owner member failed")
)

// GormWorkspaceRepository is a GORM implementation of WorkspaceRepository
type GormWorkspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &GormWorkspaceRepository{db: db}
}

// Create creates a workspace and the owner's roster entry atomically
func (r *GormWorkspaceRepository) Create(ctx context.Context, ws *models.Workspace, owner *models.WorkspaceMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(ws).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateWorkspace, err)
		}

		owner.WorkspaceID = ws.ID
		if err := tx.Omit(clause.Associations).Create(owner).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOwnerMember, err)
		}

		return nil
	})
}

// FindByID finds a workspace by ID
func (r *GormWorkspaceRepository) FindByID(ctx context.Context, id uint64) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.db.WithContext(ctx).First(&ws, id).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

// FindByInviteCode finds a workspace by its standing invite code
func (r *GormWorkspaceRepository) FindByInviteCode(ctx context.Context, code string) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&ws).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

// Update saves workspace fields, including a cleared invite code
func (r *GormWorkspaceRepository) Update(ctx context.Context, ws *models.Workspace) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(ws).Error
}

// Delete soft deletes a workspace, its projects and tasks, and drops its roster
func (r *GormWorkspaceRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		if err := tx.Where("workspace_id = ?", id).Delete(&models.Project{}).Error; err != nil {
			return err
		}

		if err := tx.Where("workspace_id = ?", id).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Workspace{}, id).Error
	})
}

// AddMemberIfAbsent inserts the roster entry unless (workspace_id, user_id)
// already exists. The primary key makes the check and the insert one statement,
// so concurrent accepts for the same user produce a single row.
// On MySQL the clause becomes ON DUPLICATE KEY UPDATE, which reports 0 rows
// for a duplicate only while the DSN leaves clientFoundRows off.
func (r *GormWorkspaceRepository) AddMemberIfAbsent(ctx context.Context, member *models.WorkspaceMember) (bool, error) {
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(member)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateMemberRole changes the role of an existing roster entry
func (r *GormWorkspaceRepository) UpdateMemberRole(ctx context.Context, workspaceID, userID uint64, role models.WorkspaceRole) error {
	result := r.db.WithContext(ctx).Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveMember removes a roster entry
func (r *GormWorkspaceRepository) RemoveMember(ctx context.Context, workspaceID, userID uint64) error {
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Delete(&models.WorkspaceMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindMember finds a specific roster entry
func (r *GormWorkspaceRepository) FindMember(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembersByUserID lists a user's roster entries, oldest workspace first
func (r *GormWorkspaceRepository) ListMembersByUserID(ctx context.Context, userID uint64) ([]models.WorkspaceMember, error) {
	var members []models.WorkspaceMember
	if err := r.db.WithContext(ctx).
		InnerJoins("Workspace").
		Where("workspace_members.user_id = ?", userID).
		Order("workspace_members.workspace_id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListMembers lists the roster of a workspace in join order
func (r *GormWorkspaceRepository) ListMembers(ctx context.Context, workspaceID uint64) ([]models.WorkspaceMember, error) {
	var members []models.WorkspaceMember
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("workspace_id = ?", workspaceID).
		Order("joined_at ASC, user_id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
