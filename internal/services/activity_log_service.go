package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/repositories"
)

const activityPageSize = 100

type ActivityLogServiceInterface interface {
	Record(ctx context.Context, entry *entities.ActivityLog) error
	// ListByRequest returns the newest entries first.
	ListByRequest(ctx context.Context, requestID uint64) ([]*entities.ActivityLog, error)
}

type ActivityLogService struct {
	repo   repositories.ActivityLogRepositoryInterface
	logger *zap.Logger
}

func NewActivityLogService(repo repositories.ActivityLogRepositoryInterface, logger *zap.Logger) ActivityLogServiceInterface {
	return &ActivityLogService{repo: repo, logger: logger}
}

func (s *ActivityLogService) Record(ctx context.Context, entry *entities.ActivityLog) error {
	id, err := s.repo.Append(ctx, entry)
	if err != nil {
		s.logger.Error("activity log write failed",
			zap.String("action", entry.Action),
			zap.Uint64("entity_id", entry.EntityID),
			zap.Error(err))
		return err
	}
	entry.ID = id
	return nil
}

func (s *ActivityLogService) ListByRequest(ctx context.Context, requestID uint64) ([]*entities.ActivityLog, error) {
	return s.repo.ListByRequest(ctx, requestID, activityPageSize)
}
