package services

import (
	"context"
	"maps"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/events"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/utils"
)

func (s *WorkflowService) Update(ctx context.Context, id uint64, in dto.UpdateRequestDTO, actorID string) (*entities.Request, error) {
	var before, after entities.Request

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err := s.requestRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		before = *req
		before.Metadata = maps.Clone(req.Metadata)

		v := &apperrors.ValidationError{}
		if in.Title.Set {
			title := strings.TrimSpace(in.Title.Value)
			if title == "" {
				v.Add("title", "Title is required")
			}
			req.Title = title
		}
		if in.Priority.Set {
			p := entities.Priority(in.Priority.Value)
			if !p.Valid() {
				v.Add("priority", "Priority must be 1 (urgent), 2 (normal) or 3 (low)")
			}
			req.Priority = p
		}
		if err := v.OrNil(); err != nil {
			return err
		}

		in.Description.Apply(&req.Description)
		in.DueDate.Apply(&req.DueDate)
		in.RequesterName.Apply(&req.RequesterName)
		in.IsConfidential.Apply(&req.IsConfidential)
		if in.Metadata.Set {
			req.Metadata = in.Metadata.Value
			if req.Metadata == nil {
				req.Metadata = map[string]interface{}{}
			}
		}
		req.UpdatedAt = s.clock.Now()

		if err := s.requestRepo.Update(ctx, tx, req); err != nil {
			return err
		}
		after = *req
		return nil
	})
	if err != nil {
		s.logger.Warn("request update failed", zap.Uint64("request_id", id), zap.Error(err))
		return nil, err
	}

	s.publisher.Publish(ctx, events.RequestUpdatedEvent{
		Meta:   events.NewMeta(actorID, after.UpdatedAt),
		Before: before,
		After:  after,
	})
	return &after, nil
}

// Delete soft-deletes the request. Its protocol number stays consumed.
func (s *WorkflowService) Delete(ctx context.Context, id uint64, actorID string) error {
	var deleted *entities.Request
	now := s.clock.Now()

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		deleted, err = s.requestRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		return s.requestRepo.SoftDelete(ctx, tx, id, now)
	})
	if err != nil {
		s.logger.Warn("request delete failed", zap.Uint64("request_id", id), zap.Error(err))
		return err
	}

	s.publisher.Publish(ctx, events.RequestDeletedEvent{Meta: events.NewMeta(actorID, now), Request: *deleted})
	return nil
}

func (s *WorkflowService) GetByID(ctx context.Context, id uint64) (*entities.Request, error) {
	return s.requestRepo.FindByID(ctx, nil, id)
}

func (s *WorkflowService) GetByProtocol(ctx context.Context, fullNumber string) (*entities.Request, error) {
	fullNumber = strings.TrimSpace(fullNumber)
	if _, _, _, err := ParseProtocolNumber(fullNumber); err != nil {
		return nil, err
	}
	return s.requestRepo.FindByProtocolNumber(ctx, fullNumber)
}

func (s *WorkflowService) ListByStage(ctx context.Context, stageID uint64) ([]*entities.Request, error) {
	return s.requestRepo.ListByStage(ctx, stageID)
}

func (s *WorkflowService) CountByStage(ctx context.Context, processTypeID uint64) (map[uint64]int, error) {
	return s.requestRepo.CountByStage(ctx, processTypeID)
}

func (s *WorkflowService) Search(ctx context.Context, groupID string, filter entities.RequestFilter, limit, offset uint64) ([]*entities.Request, uint64, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, 0, apperrors.NewValidationError("groupId", "Group is required")
	}
	if filter.Priority != 0 && !filter.Priority.Valid() {
		return nil, 0, apperrors.NewValidationError("priority", "Priority must be 1 (urgent), 2 (normal) or 3 (low)")
	}
	switch filter.Status {
	case "", entities.StatusOpen, entities.StatusInProgress, entities.StatusCompleted:
	default:
		return nil, 0, apperrors.NewValidationError("status", "Unknown status")
	}

	if limit == 0 {
		limit = utils.DefaultLimit
	}
	if limit > utils.MaxLimit {
		limit = utils.MaxLimit
	}
	filter.Query = strings.TrimSpace(filter.Query)
	return s.requestRepo.Search(ctx, groupID, filter, limit, offset)
}

func (s *WorkflowService) ListByRequester(ctx context.Context, requesterID, groupID string) ([]*entities.Request, error) {
	if strings.TrimSpace(requesterID) == "" {
		return nil, apperrors.NewValidationError("requesterId", "Requester is required")
	}
	return s.requestRepo.ListByRequester(ctx, requesterID, groupID)
}

// History returns the transitions of a live request, oldest first.
func (s *WorkflowService) History(ctx context.Context, requestID uint64) ([]*entities.StageTransition, error) {
	if _, err := s.requestRepo.FindByID(ctx, nil, requestID); err != nil {
		return nil, err
	}
	return s.transitionRepo.ListByRequest(ctx, requestID)
}
