package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/repositories"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/types"
	"github.com/geniusappsio/tramita/pkg/utils"
)

// StageServiceInterface is the stage graph of a process type.
type StageServiceInterface interface {
	// ListStages returns live stages by ascending sortOrder.
	ListStages(ctx context.Context, processTypeID uint64) ([]*entities.Stage, error)
	// FindInitial fails with ErrNotFound when the process type has no initial stage.
	FindInitial(ctx context.Context, processTypeID uint64) (*entities.Stage, error)
	GetStage(ctx context.Context, id uint64) (*entities.Stage, error)
	CreateStage(ctx context.Context, in dto.CreateStageDTO) (*entities.Stage, error)
	UpdateStage(ctx context.Context, id uint64, in dto.UpdateStageDTO) (*entities.Stage, error)
	DeleteStage(ctx context.Context, id uint64) error
	ReorderStages(ctx context.Context, processTypeID uint64, ids []uint64) error
}

type StageService struct {
	processTypeRepo repositories.ProcessTypeRepositoryInterface
	stageRepo       repositories.StageRepositoryInterface
	requestRepo     repositories.RequestRepositoryInterface
	ordering        OrderingServiceInterface
	cache           repositories.CacheRepositoryInterface
	txManager       repositories.TxManagerInterface
	clock           utils.Clock
	cacheTTL        time.Duration
	logger          *zap.Logger
}

func NewStageService(
	processTypeRepo repositories.ProcessTypeRepositoryInterface,
	stageRepo repositories.StageRepositoryInterface,
	requestRepo repositories.RequestRepositoryInterface,
	ordering OrderingServiceInterface,
	cache repositories.CacheRepositoryInterface,
	txManager repositories.TxManagerInterface,
	clock utils.Clock,
	cacheTTL time.Duration,
	logger *zap.Logger,
) StageServiceInterface {
	return &StageService{
		processTypeRepo: processTypeRepo,
		stageRepo:       stageRepo,
		requestRepo:     requestRepo,
		ordering:        ordering,
		cache:           cache,
		txManager:       txManager,
		clock:           clock,
		cacheTTL:        cacheTTL,
		logger:          logger,
	}
}

func stageListCacheKey(processTypeID uint64) string {
	return fmt.Sprintf("tramita:stages:%d", processTypeID)
}

func (s *StageService) ListStages(ctx context.Context, processTypeID uint64) ([]*entities.Stage, error) {
	key := stageListCacheKey(processTypeID)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		var stages []*entities.Stage
		if jsonErr := json.Unmarshal([]byte(cached), &stages); jsonErr == nil {
			return stages, nil
		}
		s.logger.Warn("discarding unreadable stage cache entry", zap.String("key", key))
	} else if !errors.Is(err, repositories.ErrCacheMiss) {
		s.logger.Warn("stage cache read failed", zap.String("key", key), zap.Error(err))
	}

	stages, err := s.stageRepo.ListByProcessType(ctx, nil, processTypeID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stages); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
			s.logger.Warn("stage cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return stages, nil
}

func (s *StageService) invalidate(ctx context.Context, processTypeID uint64) {
	if err := s.cache.Del(ctx, stageListCacheKey(processTypeID)); err != nil {
		s.logger.Warn("stage cache invalidation failed", zap.Uint64("process_type_id", processTypeID), zap.Error(err))
	}
}

func (s *StageService) FindInitial(ctx context.Context, processTypeID uint64) (*entities.Stage, error) {
	return s.stageRepo.FindInitial(ctx, nil, processTypeID)
}

func (s *StageService) GetStage(ctx context.Context, id uint64) (*entities.Stage, error) {
	return s.stageRepo.FindByID(ctx, nil, id)
}

// lockProcessType serializes stage writes of one process type so the
// single-initial-stage check cannot race.
func (s *StageService) lockProcessType(ctx context.Context, tx pgx.Tx, processTypeID uint64) error {
	if _, err := s.processTypeRepo.LockByID(ctx, tx, processTypeID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewValidationError("processTypeId", "Process type not found")
		}
		return err
	}
	return nil
}

// checkStageRules enforces one initial stage per process type and keeps allowedNext inside it.
func (s *StageService) checkStageRules(ctx context.Context, tx pgx.Tx, stage *entities.Stage) error {
	if stage.IsInitial {
		exists, err := s.stageRepo.InitialExists(ctx, tx, stage.ProcessTypeID, stage.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.NewValidationError("isInitial", "Process type already has an initial stage")
		}
	}

	if len(stage.AllowedNext) == 0 {
		return nil
	}
	siblings, err := s.stageRepo.ListByProcessType(ctx, tx, stage.ProcessTypeID)
	if err != nil {
		return err
	}
	known := make(map[uint64]struct{}, len(siblings))
	for _, sib := range siblings {
		known[sib.ID] = struct{}{}
	}
	for _, id := range stage.AllowedNext {
		if _, ok := known[id]; !ok {
			return apperrors.NewValidationError("allowedNext", fmt.Sprintf("Stage %d does not belong to this process type", id))
		}
	}
	return nil
}

func uniqueIDs(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nameAndSlug(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", apperrors.NewValidationError("name", "Name is required")
	}
	slug := utils.Slugify(name)
	if slug == "" {
		return "", "", apperrors.NewValidationError("name", "Name must contain letters or digits")
	}
	return name, slug, nil
}

func (s *StageService) CreateStage(ctx context.Context, in dto.CreateStageDTO) (*entities.Stage, error) {
	name, slug, err := nameAndSlug(in.Name)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	stage := &entities.Stage{
		ProcessTypeID: in.ProcessTypeID,
		Name:          name,
		Slug:          slug,
		Description:   in.Description,
		Color:         in.Color,
		IsInitial:     in.IsInitial,
		IsFinal:       in.IsFinal,
		AllowedNext:   uniqueIDs(in.AllowedNext),
		SLAHours:      in.SLAHours,
		IsActive:      true,
		BaseEntity:    types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.lockProcessType(ctx, tx, in.ProcessTypeID); err != nil {
			return err
		}
		if err := s.checkStageRules(ctx, tx, stage); err != nil {
			return err
		}

		count, err := s.stageRepo.CountByProcessType(ctx, tx, in.ProcessTypeID)
		if err != nil {
			return err
		}
		stage.SortOrder = count

		id, err := s.stageRepo.Create(ctx, tx, stage)
		if err != nil {
			return err
		}
		stage.ID = id
		return nil
	})
	if err != nil {
		s.logger.Warn("stage create failed", zap.Uint64("process_type_id", in.ProcessTypeID), zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx, in.ProcessTypeID)
	s.logger.Info("stage created", zap.Uint64("stage_id", stage.ID), zap.Uint64("process_type_id", in.ProcessTypeID))
	return stage, nil
}

func (s *StageService) UpdateStage(ctx context.Context, id uint64, in dto.UpdateStageDTO) (*entities.Stage, error) {
	var stage *entities.Stage

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		stage, err = s.stageRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.lockProcessType(ctx, tx, stage.ProcessTypeID); err != nil {
			return err
		}

		if in.Name.Set {
			stage.Name, stage.Slug, err = nameAndSlug(in.Name.Value)
			if err != nil {
				return err
			}
		}
		in.Description.Apply(&stage.Description)
		in.Color.Apply(&stage.Color)
		in.IsInitial.Apply(&stage.IsInitial)
		in.IsFinal.Apply(&stage.IsFinal)
		in.SLAHours.Apply(&stage.SLAHours)
		in.IsActive.Apply(&stage.IsActive)
		if in.AllowedNext.Set {
			stage.AllowedNext = uniqueIDs(in.AllowedNext.Value)
		}

		if err := s.checkStageRules(ctx, tx, stage); err != nil {
			return err
		}

		stage.UpdatedAt = s.clock.Now()
		return s.stageRepo.Update(ctx, tx, stage)
	})
	if err != nil {
		s.logger.Warn("stage update failed", zap.Uint64("stage_id", id), zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx, stage.ProcessTypeID)
	return stage, nil
}

// DeleteStage refuses to remove a column that still holds live requests.
func (s *StageService) DeleteStage(ctx context.Context, id uint64) error {
	var processTypeID uint64

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		stage, err := s.stageRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		processTypeID = stage.ProcessTypeID

		count, err := s.requestRepo.CountInStage(ctx, tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NewValidationError("stageId", fmt.Sprintf("Stage still holds %d requests", count))
		}
		return s.stageRepo.SoftDelete(ctx, tx, id, s.clock.Now())
	})
	if err != nil {
		s.logger.Warn("stage delete failed", zap.Uint64("stage_id", id), zap.Error(err))
		return err
	}

	s.invalidate(ctx, processTypeID)
	return nil
}

func (s *StageService) ReorderStages(ctx context.Context, processTypeID uint64, ids []uint64) error {
	if err := s.ordering.Reorder(ctx, repositories.StageScope, processTypeID, ids); err != nil {
		return err
	}
	s.invalidate(ctx, processTypeID)
	return nil
}
