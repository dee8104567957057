package repository

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormActivityRepository is a GORM implementation of ActivityRepository
type GormActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &GormActivityRepository{db: db}
}

// Record appends an activity entry
func (r *GormActivityRepository) Record(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Omit("User").Create(activity).Error
}

// ListByResource lists the newest entries for a resource
func (r *GormActivityRepository) ListByResource(ctx context.Context, resourceType models.ResourceType, resourceID uint64, limit int) ([]models.Activity, error) {
	var activities []models.Activity
	query := r.db.WithContext(ctx).
		Preload("User").
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}
