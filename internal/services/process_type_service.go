package services

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/repositories"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/types"
	"github.com/geniusappsio/tramita/pkg/utils"
	"github.com/geniusappsio/tramita/pkg/validation"
)

type ProcessTypeServiceInterface interface {
	Create(ctx context.Context, in dto.CreateProcessTypeDTO) (*entities.ProcessType, error)
	Update(ctx context.Context, id uint64, in dto.UpdateProcessTypeDTO) (*entities.ProcessType, error)
	// Delete is a soft delete. Stages and requests are left untouched.
	Delete(ctx context.Context, id uint64) error
	Restore(ctx context.Context, id uint64) (*entities.ProcessType, error)
	GetByID(ctx context.Context, id uint64) (*entities.ProcessType, error)
	List(ctx context.Context, groupID string, activeOnly bool) ([]*entities.ProcessType, error)
}

type ProcessTypeService struct {
	repo         repositories.ProcessTypeRepositoryInterface
	sequenceRepo repositories.SequenceRepositoryInterface
	txManager    repositories.TxManagerInterface
	clock        utils.Clock
	logger       *zap.Logger
}

func NewProcessTypeService(
	repo repositories.ProcessTypeRepositoryInterface,
	sequenceRepo repositories.SequenceRepositoryInterface,
	txManager repositories.TxManagerInterface,
	clock utils.Clock,
	logger *zap.Logger,
) ProcessTypeServiceInterface {
	return &ProcessTypeService{repo: repo, sequenceRepo: sequenceRepo, txManager: txManager, clock: clock, logger: logger}
}

func normalizePrefix(prefix string) string {
	return strings.ToUpper(strings.TrimSpace(prefix))
}

func checkPrefix(v *apperrors.ValidationError, prefix string) {
	if prefix == "" {
		v.Add("prefix", "Prefix is required")
		return
	}
	if !validation.IsProtocolPrefix(prefix) {
		v.Add("prefix", "Prefix must be 1 to 10 characters, A-Z or 0-9")
	}
}

// claimPrefix keeps each prefix inside one group. Two groups sharing a prefix
// would produce identical full protocol numbers.
func (s *ProcessTypeService) claimPrefix(ctx context.Context, tx pgx.Tx, prefix, groupID string) error {
	owner, err := s.sequenceRepo.ClaimPrefix(ctx, tx, prefix, groupID)
	if err != nil {
		return err
	}
	if owner != groupID {
		return apperrors.NewValidationError("prefix", "Prefix is already used by another group")
	}
	return nil
}

func (s *ProcessTypeService) Create(ctx context.Context, in dto.CreateProcessTypeDTO) (*entities.ProcessType, error) {
	v := &apperrors.ValidationError{}

	name := strings.TrimSpace(in.Name)
	slug := utils.Slugify(name)
	if name == "" || slug == "" {
		v.Add("name", "Name is required")
	}
	prefix := normalizePrefix(in.Prefix)
	checkPrefix(v, prefix)
	groupID := strings.TrimSpace(in.GroupID)
	if groupID == "" {
		v.Add("groupId", "Group is required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	pt := &entities.ProcessType{
		Name:        name,
		Slug:        slug,
		Prefix:      prefix,
		Description: in.Description,
		Color:       in.Color,
		Icon:        in.Icon,
		GroupID:     groupID,
		IsActive:    true,
		IsExternal:  in.IsExternal,
		CreatedBy:   in.CreatedBy,
		BaseEntity:  types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.claimPrefix(ctx, tx, prefix, groupID); err != nil {
			return err
		}
		id, err := s.repo.Create(ctx, tx, pt)
		if err != nil {
			return err
		}
		pt.ID = id
		return nil
	})
	if err != nil {
		s.logger.Warn("process type create failed", zap.String("slug", slug), zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("process type created", zap.Uint64("process_type_id", pt.ID), zap.String("prefix", prefix))
	return pt, nil
}

func (s *ProcessTypeService) Update(ctx context.Context, id uint64, in dto.UpdateProcessTypeDTO) (*entities.ProcessType, error) {
	var pt *entities.ProcessType

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		pt, err = s.repo.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}

		v := &apperrors.ValidationError{}
		if in.Name.Set {
			name := strings.TrimSpace(in.Name.Value)
			if slug := utils.Slugify(name); name == "" || slug == "" {
				v.Add("name", "Name is required")
			} else {
				pt.Name, pt.Slug = name, slug
			}
		}
		prefixChanged := false
		if in.Prefix.Set {
			prefix := normalizePrefix(in.Prefix.Value)
			checkPrefix(v, prefix)
			prefixChanged = prefix != pt.Prefix
			pt.Prefix = prefix
		}
		if err := v.OrNil(); err != nil {
			return err
		}
		if prefixChanged {
			if err := s.claimPrefix(ctx, tx, pt.Prefix, pt.GroupID); err != nil {
				return err
			}
		}

		in.Description.Apply(&pt.Description)
		in.Color.Apply(&pt.Color)
		in.Icon.Apply(&pt.Icon)
		in.IsActive.Apply(&pt.IsActive)
		in.IsExternal.Apply(&pt.IsExternal)
		in.SortOrder.Apply(&pt.SortOrder)
		pt.UpdatedAt = s.clock.Now()

		return s.repo.Update(ctx, tx, pt)
	})
	if err != nil {
		s.logger.Warn("process type update failed", zap.Uint64("process_type_id", id), zap.Error(err))
		return nil, err
	}
	return pt, nil
}

func (s *ProcessTypeService) Delete(ctx context.Context, id uint64) error {
	if err := s.repo.SoftDelete(ctx, nil, id, s.clock.Now()); err != nil {
		s.logger.Warn("process type delete failed", zap.Uint64("process_type_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *ProcessTypeService) Restore(ctx context.Context, id uint64) (*entities.ProcessType, error) {
	if err := s.repo.Restore(ctx, nil, id, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, nil, id)
}

func (s *ProcessTypeService) GetByID(ctx context.Context, id uint64) (*entities.ProcessType, error) {
	return s.repo.FindByID(ctx, nil, id)
}

func (s *ProcessTypeService) List(ctx context.Context, groupID string, activeOnly bool) ([]*entities.ProcessType, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, apperrors.NewValidationError("groupId", "Group is required")
	}
	return s.repo.ListByGroup(ctx, groupID, activeOnly)
}
