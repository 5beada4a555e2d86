package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/repositories"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/types"
	"github.com/geniusappsio/tramita/pkg/utils"
)

const defaultFieldWidth = "full"

type FormServiceInterface interface {
	CreateTemplate(ctx context.Context, in dto.CreateFormTemplateDTO) (*entities.FormTemplate, error)
	GetTemplate(ctx context.Context, id uint64) (*entities.FormTemplate, error)
	UpdateTemplate(ctx context.Context, id uint64, in dto.UpdateFormTemplateDTO) (*entities.FormTemplate, error)
	ListTemplates(ctx context.Context, processTypeID uint64) ([]*entities.FormTemplate, error)
	DeleteTemplate(ctx context.Context, id uint64) error

	CreateField(ctx context.Context, templateID uint64, in dto.CreateFormFieldDTO) (*entities.FormField, error)
	UpdateField(ctx context.Context, id uint64, in dto.UpdateFormFieldDTO) (*entities.FormField, error)
	DeleteField(ctx context.Context, id uint64) error
	ListFields(ctx context.Context, templateID uint64) ([]*entities.FormField, error)
	ReorderFields(ctx context.Context, templateID uint64, ids []uint64) error
}

type FormService struct {
	formRepo        repositories.FormRepositoryInterface
	processTypeRepo repositories.ProcessTypeRepositoryInterface
	stageRepo       repositories.StageRepositoryInterface
	ordering        OrderingServiceInterface
	txManager       repositories.TxManagerInterface
	clock           utils.Clock
	logger          *zap.Logger
}

func NewFormService(
	formRepo repositories.FormRepositoryInterface,
	processTypeRepo repositories.ProcessTypeRepositoryInterface,
	stageRepo repositories.StageRepositoryInterface,
	ordering OrderingServiceInterface,
	txManager repositories.TxManagerInterface,
	clock utils.Clock,
	logger *zap.Logger,
) FormServiceInterface {
	return &FormService{
		formRepo:        formRepo,
		processTypeRepo: processTypeRepo,
		stageRepo:       stageRepo,
		ordering:        ordering,
		txManager:       txManager,
		clock:           clock,
		logger:          logger,
	}
}

func (s *FormService) CreateTemplate(ctx context.Context, in dto.CreateFormTemplateDTO) (*entities.FormTemplate, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name", "Name is required")
	}

	now := s.clock.Now()
	tpl := &entities.FormTemplate{
		ProcessTypeID: in.ProcessTypeID,
		StageID:       in.StageID,
		Name:          name,
		Description:   in.Description,
		Version:       1,
		IsActive:      true,
		IsRequired:    in.IsRequired,
		CreatedBy:     in.CreatedBy,
		BaseEntity:    types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.processTypeRepo.FindByID(ctx, tx, in.ProcessTypeID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewValidationError("processTypeId", "Process type not found")
			}
			return err
		}
		if err := s.checkTemplateStage(ctx, tx, in.ProcessTypeID, in.StageID); err != nil {
			return err
		}

		id, err := s.formRepo.CreateTemplate(ctx, tx, tpl)
		if err != nil {
			return err
		}
		tpl.ID = id
		return nil
	})
	if err != nil {
		s.logger.Warn("form template create failed", zap.Uint64("process_type_id", in.ProcessTypeID), zap.Error(err))
		return nil, err
	}
	return tpl, nil
}

// checkTemplateStage accepts no stage or a live stage of processTypeID.
func (s *FormService) checkTemplateStage(ctx context.Context, tx pgx.Tx, processTypeID uint64, stageID null.Uint64) error {
	if !stageID.Valid {
		return nil
	}
	stage, err := s.stageRepo.FindByID(ctx, tx, stageID.Uint64)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	if stage == nil || stage.ProcessTypeID != processTypeID {
		return apperrors.NewValidationError("stageId", "Stage does not belong to this process type")
	}
	return nil
}

func (s *FormService) GetTemplate(ctx context.Context, id uint64) (*entities.FormTemplate, error) {
	return s.formRepo.FindTemplateByID(ctx, nil, id)
}

func (s *FormService) UpdateTemplate(ctx context.Context, id uint64, in dto.UpdateFormTemplateDTO) (*entities.FormTemplate, error) {
	var tpl *entities.FormTemplate

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		tpl, err = s.formRepo.FindTemplateByID(ctx, tx, id)
		if err != nil {
			return err
		}

		if in.Name.Set {
			name := strings.TrimSpace(in.Name.Value)
			if name == "" {
				return apperrors.NewValidationError("name", "Name is required")
			}
			tpl.Name = name
		}
		in.Description.Apply(&tpl.Description)
		in.IsActive.Apply(&tpl.IsActive)
		in.IsRequired.Apply(&tpl.IsRequired)
		if in.StageID.Apply(&tpl.StageID) {
			if err := s.checkTemplateStage(ctx, tx, tpl.ProcessTypeID, tpl.StageID); err != nil {
				return err
			}
		}

		tpl.UpdatedAt = s.clock.Now()
		return s.formRepo.UpdateTemplate(ctx, tx, tpl)
	})
	if err != nil {
		s.logger.Warn("form template update failed", zap.Uint64("template_id", id), zap.Error(err))
		return nil, err
	}
	return tpl, nil
}

func (s *FormService) ListTemplates(ctx context.Context, processTypeID uint64) ([]*entities.FormTemplate, error) {
	return s.formRepo.ListTemplates(ctx, processTypeID)
}

func (s *FormService) DeleteTemplate(ctx context.Context, id uint64) error {
	return s.formRepo.SoftDeleteTemplate(ctx, nil, id, s.clock.Now())
}

func validateField(v *apperrors.ValidationError, f *entities.FormField) {
	if f.Name == "" {
		v.Add("name", "Name is required")
	}
	if f.Label == "" {
		v.Add("label", "Label is required")
	}
	if !slices.Contains(entities.FieldTypes, f.FieldType) {
		v.Add("fieldType", "Unknown field type")
	}
}

// CreateField appends the field after the template's existing live fields.
func (s *FormService) CreateField(ctx context.Context, templateID uint64, in dto.CreateFormFieldDTO) (*entities.FormField, error) {
	now := s.clock.Now()
	field := &entities.FormField{
		TemplateID:   templateID,
		Name:         strings.TrimSpace(in.Name),
		Label:        strings.TrimSpace(in.Label),
		FieldType:    in.FieldType,
		Placeholder:  in.Placeholder,
		HelpText:     in.HelpText,
		DefaultValue: in.DefaultValue,
		IsRequired:   in.IsRequired,
		IsReadonly:   in.IsReadonly,
		IsHidden:     in.IsHidden,
		Options:      in.Options,
		Validation:   in.Validation,
		Width:        in.Width,
		BaseEntity:   types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}
	if field.Width == "" {
		field.Width = defaultFieldWidth
	}

	v := &apperrors.ValidationError{}
	validateField(v, field)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.formRepo.FindTemplateByID(ctx, tx, templateID); err != nil {
			return err
		}
		count, err := s.formRepo.CountFields(ctx, tx, templateID)
		if err != nil {
			return err
		}
		field.SortOrder = count

		id, err := s.formRepo.CreateField(ctx, tx, field)
		if err != nil {
			return err
		}
		field.ID = id
		return nil
	})
	if err != nil {
		s.logger.Warn("form field create failed", zap.Uint64("template_id", templateID), zap.Error(err))
		return nil, err
	}
	return field, nil
}

func (s *FormService) UpdateField(ctx context.Context, id uint64, in dto.UpdateFormFieldDTO) (*entities.FormField, error) {
	var field *entities.FormField

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		field, err = s.formRepo.FindFieldByID(ctx, tx, id)
		if err != nil {
			return err
		}

		if in.Label.Set {
			field.Label = strings.TrimSpace(in.Label.Value)
		}
		in.FieldType.Apply(&field.FieldType)
		in.Placeholder.Apply(&field.Placeholder)
		in.HelpText.Apply(&field.HelpText)
		in.DefaultValue.Apply(&field.DefaultValue)
		in.IsRequired.Apply(&field.IsRequired)
		in.IsReadonly.Apply(&field.IsReadonly)
		in.IsHidden.Apply(&field.IsHidden)
		in.Options.Apply(&field.Options)
		in.Validation.Apply(&field.Validation)
		if in.Width.Apply(&field.Width) && field.Width == "" {
			field.Width = defaultFieldWidth
		}

		v := &apperrors.ValidationError{}
		validateField(v, field)
		if err := v.OrNil(); err != nil {
			return err
		}

		field.UpdatedAt = s.clock.Now()
		return s.formRepo.UpdateField(ctx, tx, field)
	})
	if err != nil {
		s.logger.Warn("form field update failed", zap.Uint64("field_id", id), zap.Error(err))
		return nil, err
	}
	return field, nil
}

func (s *FormService) DeleteField(ctx context.Context, id uint64) error {
	return s.formRepo.SoftDeleteField(ctx, nil, id, s.clock.Now())
}

func (s *FormService) ListFields(ctx context.Context, templateID uint64) ([]*entities.FormField, error) {
	return s.formRepo.ListFields(ctx, templateID)
}

func (s *FormService) ReorderFields(ctx context.Context, templateID uint64, ids []uint64) error {
	return s.ordering.Reorder(ctx, repositories.FieldScope, templateID, ids)
}
