package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/repositories"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/metrics"
)

// OrderingServiceInterface assigns dense 0-based positions inside a scope.
// Concurrent reorders of one scope are last-writer-wins.
type OrderingServiceInterface interface {
	Reorder(ctx context.Context, scope repositories.OrderScope, scopeID uint64, ids []uint64) error
}

type OrderingService struct {
	sortRepo  repositories.SortOrderRepositoryInterface
	txManager repositories.TxManagerInterface
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewOrderingService(
	sortRepo repositories.SortOrderRepositoryInterface,
	txManager repositories.TxManagerInterface,
	metrics *metrics.Metrics,
	logger *zap.Logger,
) OrderingServiceInterface {
	return &OrderingService{sortRepo: sortRepo, txManager: txManager, metrics: metrics, logger: logger}
}

// checkMembership fails on the first duplicate or foreign ID, before anything is written.
func checkMembership(members, ids []uint64) error {
	inScope := make(map[uint64]struct{}, len(members))
	for _, id := range members {
		inScope[id] = struct{}{}
	}

	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return apperrors.NewValidationError("ids", fmt.Sprintf("ID %d is listed more than once", id))
		}
		seen[id] = struct{}{}
		if _, ok := inScope[id]; !ok {
			return apperrors.NewValidationError("ids", fmt.Sprintf("ID %d does not belong to this scope", id))
		}
	}
	return nil
}

// Reorder sets sortOrder = index for every ID. IDs left out keep their position.
func (s *OrderingService) Reorder(ctx context.Context, scope repositories.OrderScope, scopeID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		members, err := s.sortRepo.MemberIDs(ctx, tx, scope, scopeID)
		if err != nil {
			return err
		}
		if err := checkMembership(members, ids); err != nil {
			return err
		}
		return s.sortRepo.Apply(ctx, tx, scope, scopeID, ids)
	})
	if err != nil {
		s.logger.Warn("reorder rejected",
			zap.String("scope", scope.Name()),
			zap.Uint64("scope_id", scopeID),
			zap.Error(err))
		return err
	}

	s.metrics.Reordered(scope.Name())
	return nil
}
