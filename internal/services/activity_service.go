package services

import (
	"context"
	"log/slog"

	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
)

const defaultActivityLimit = 50

// ActivityService records and lists the history shown next to resources.
type ActivityService struct {
	repo repository.ActivityRepository
	log  *slog.Logger
}

// NewActivityService creates a new ActivityService.
func NewActivityService(repo repository.ActivityRepository, log *slog.Logger) *ActivityService {
	return &ActivityService{repo: repo, log: log}
}

// Record appends an entry. A failed write is logged and never fails the
// operation that produced it.
func (s *ActivityService) Record(ctx context.Context, userID uint64, action models.ActivityAction, resourceType models.ResourceType, resourceID uint64, details string) {
	err := s.repo.Record(ctx, &models.Activity{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	})
	if err != nil {
		s.log.Warn("failed to record activity",
			slog.String("action", string(action)),
			slog.String("resource_type", string(resourceType)),
			slog.Uint64("resource_id", resourceID),
			slog.Any("error", err),
		)
	}
}

// List returns the newest entries for a resource.
func (s *ActivityService) List(ctx context.Context, resourceType models.ResourceType, resourceID uint64) ([]models.Activity, error) {
	entries, err := s.repo.ListByResource(ctx, resourceType, resourceID, defaultActivityLimit)
	if err != nil {
		return nil, apierrors.Internal("failed to list activity", err)
	}
	return entries, nil
}
