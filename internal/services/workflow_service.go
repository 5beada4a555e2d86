package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/events"
	"github.com/geniusappsio/tramita/internal/repositories"
	"github.com/geniusappsio/tramita/pkg/config"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/eventbus"
	"github.com/geniusappsio/tramita/pkg/metrics"
	"github.com/geniusappsio/tramita/pkg/types"
	"github.com/geniusappsio/tramita/pkg/utils"
)

// EventPublisher is satisfied by *eventbus.Bus.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

type WorkflowServiceInterface interface {
	// Create places a new request in the initial stage and gives it a protocol number.
	Create(ctx context.Context, in dto.CreateRequestDTO, actorID string) (*entities.Request, error)
	// Move puts the request in another stage of its process type and records the transition.
	Move(ctx context.Context, id uint64, in dto.MoveRequestDTO, actorID string) (*entities.Request, error)
	Update(ctx context.Context, id uint64, in dto.UpdateRequestDTO, actorID string) (*entities.Request, error)
	Delete(ctx context.Context, id uint64, actorID string) error
	GetByID(ctx context.Context, id uint64) (*entities.Request, error)
	GetByProtocol(ctx context.Context, fullNumber string) (*entities.Request, error)
	ListByStage(ctx context.Context, stageID uint64) ([]*entities.Request, error)
	CountByStage(ctx context.Context, processTypeID uint64) (map[uint64]int, error)
	Search(ctx context.Context, groupID string, filter entities.RequestFilter, limit, offset uint64) ([]*entities.Request, uint64, error)
	ListByRequester(ctx context.Context, requesterID, groupID string) ([]*entities.Request, error)
	History(ctx context.Context, requestID uint64) ([]*entities.StageTransition, error)
	ReorderCards(ctx context.Context, stageID uint64, ids []uint64) error
}

type WorkflowService struct {
	processTypeRepo repositories.ProcessTypeRepositoryInterface
	stageRepo       repositories.StageRepositoryInterface
	requestRepo     repositories.RequestRepositoryInterface
	transitionRepo  repositories.StageTransitionRepositoryInterface
	protocolRepo    repositories.ProtocolRepositoryInterface
	allocator       ProtocolAllocatorInterface
	ordering        OrderingServiceInterface
	txManager       repositories.TxManagerInterface
	publisher       EventPublisher
	clock           utils.Clock
	cfg             config.WorkflowConfig
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewWorkflowService(
	processTypeRepo repositories.ProcessTypeRepositoryInterface,
	stageRepo repositories.StageRepositoryInterface,
	requestRepo repositories.RequestRepositoryInterface,
	transitionRepo repositories.StageTransitionRepositoryInterface,
	protocolRepo repositories.ProtocolRepositoryInterface,
	allocator ProtocolAllocatorInterface,
	ordering OrderingServiceInterface,
	txManager repositories.TxManagerInterface,
	publisher EventPublisher,
	clock utils.Clock,
	cfg config.WorkflowConfig,
	metrics *metrics.Metrics,
	logger *zap.Logger,
) WorkflowServiceInterface {
	return &WorkflowService{
		processTypeRepo: processTypeRepo,
		stageRepo:       stageRepo,
		requestRepo:     requestRepo,
		transitionRepo:  transitionRepo,
		protocolRepo:    protocolRepo,
		allocator:       allocator,
		ordering:        ordering,
		txManager:       txManager,
		publisher:       publisher,
		clock:           clock,
		cfg:             cfg,
		metrics:         metrics,
		logger:          logger,
	}
}

func (s *WorkflowService) defaultPriority() entities.Priority {
	p := entities.Priority(s.cfg.DefaultPriority)
	if !p.Valid() {
		return entities.PriorityNormal
	}
	return p
}

func (s *WorkflowService) Create(ctx context.Context, in dto.CreateRequestDTO, actorID string) (*entities.Request, error) {
	v := &apperrors.ValidationError{}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		v.Add("title", "Title is required")
	}
	requesterID := strings.TrimSpace(in.RequesterID)
	if requesterID == "" {
		requesterID = strings.TrimSpace(actorID)
	}
	if requesterID == "" {
		v.Add("requesterId", "Requester is required")
	}
	groupID := strings.TrimSpace(in.GroupID)
	if groupID == "" {
		v.Add("groupId", "Group is required")
	}
	priority := s.defaultPriority()
	if in.Priority != 0 {
		priority = entities.Priority(in.Priority)
		if !priority.Valid() {
			v.Add("priority", "Priority must be 1 (urgent), 2 (normal) or 3 (low)")
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	req := &entities.Request{
		ProcessTypeID:  in.ProcessTypeID,
		Title:          title,
		Description:    in.Description,
		Priority:       priority,
		DueDate:        in.DueDate,
		RequesterID:    requesterID,
		RequesterName:  in.RequesterName,
		GroupID:        groupID,
		SortOrder:      0,
		Metadata:       in.Metadata,
		IsConfidential: in.IsConfidential,
		BaseEntity:     types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}
	if req.Metadata == nil {
		req.Metadata = map[string]interface{}{}
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		initial, err := s.stageRepo.FindInitial(ctx, tx, in.ProcessTypeID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewValidationError("processTypeId", "Process type has no initial stage")
			}
			return err
		}

		pt, err := s.processTypeRepo.FindByID(ctx, tx, in.ProcessTypeID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewValidationError("processTypeId", "Process type not found")
			}
			return err
		}

		protocol, err := s.allocator.Allocate(ctx, tx, pt.ID, pt.Prefix, groupID)
		if err != nil {
			return err
		}

		req.CurrentStageID = initial.ID
		req.Status, req.CompletedAt = ResolveStatus(initial, now)
		req.ProtocolID = null.Uint64From(protocol.ID)
		req.ProtocolNumber = null.StringFrom(protocol.FullNumber)

		id, err := s.requestRepo.Create(ctx, tx, req)
		if err != nil {
			return err
		}
		req.ID = id

		if err := s.protocolRepo.LinkRequest(ctx, tx, protocol.ID, req.ID); err != nil {
			return err
		}

		if s.cfg.RecordCreationTransition {
			_, err = s.transitionRepo.Append(ctx, tx, &entities.StageTransition{
				RequestID: req.ID,
				ToStageID: initial.ID,
				UserID:    requesterID,
				CreatedAt: now,
			})
			return err
		}
		return nil
	})
	if err != nil {
		if apperrors.IsRetryable(err) {
			s.logger.Warn("request create lost a protocol race", zap.Uint64("process_type_id", in.ProcessTypeID), zap.Error(err))
		} else {
			s.logger.Error("request create failed", zap.Uint64("process_type_id", in.ProcessTypeID), zap.Error(err))
		}
		return nil, err
	}

	s.publisher.Publish(ctx, events.RequestCreatedEvent{Meta: events.NewMeta(requesterID, now), Request: *req})
	s.logger.Info("request created",
		zap.Uint64("request_id", req.ID),
		zap.String("protocol", req.ProtocolNumber.String))
	return req, nil
}

// elapsedSeconds never goes negative when clocks disagree.
func elapsedSeconds(since, now time.Time) int64 {
	d := int64(now.Sub(since) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

func (s *WorkflowService) checkTransition(ctx context.Context, tx pgx.Tx, req *entities.Request, target *entities.Stage) error {
	if target.ProcessTypeID != req.ProcessTypeID {
		return apperrors.NewValidationError("toStageId", "Stage belongs to another process type")
	}
	// staying put re-derives status and is never restricted by allowedNext
	if target.ID == req.CurrentStageID || !s.cfg.StrictTransitions {
		return nil
	}

	source, err := s.stageRepo.FindByID(ctx, tx, req.CurrentStageID)
	if err != nil {
		// a removed source stage no longer constrains where the card can go
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if !source.AllowsTransitionTo(target.ID) {
		return apperrors.NewValidationError("toStageId", fmt.Sprintf("Moving from %q to %q is not allowed", source.Name, target.Name))
	}
	return nil
}

func (s *WorkflowService) Move(ctx context.Context, id uint64, in dto.MoveRequestDTO, actorID string) (*entities.Request, error) {
	actorID = strings.TrimSpace(actorID)

	var (
		req        *entities.Request
		transition *entities.StageTransition
		fromStatus entities.RequestStatus
	)
	now := s.clock.Now()

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		req, err = s.requestRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if actorID == "" {
			return apperrors.NewValidationError("actorId", "Acting user is required")
		}

		target, err := s.stageRepo.FindByID(ctx, tx, in.ToStageID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewValidationError("toStageId", "Stage not found")
			}
			return err
		}
		if err := s.checkTransition(ctx, tx, req, target); err != nil {
			return err
		}

		since := req.CreatedAt
		last, err := s.transitionRepo.LastForRequest(ctx, tx, req.ID)
		switch {
		case err == nil:
			since = last.CreatedAt
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		position := req.SortOrder
		if target.ID != req.CurrentStageID {
			if position, err = s.requestRepo.CountInStage(ctx, tx, target.ID); err != nil {
				return err
			}
		}

		fromStageID := req.CurrentStageID
		fromStatus = req.Status

		req.CurrentStageID = target.ID
		req.Status, req.CompletedAt = ResolveStatus(target, now)
		req.SortOrder = position
		req.UpdatedAt = now
		if err := s.requestRepo.Update(ctx, tx, req); err != nil {
			return err
		}

		transition = &entities.StageTransition{
			RequestID:    req.ID,
			FromStageID:  null.Uint64From(fromStageID),
			ToStageID:    target.ID,
			UserID:       actorID,
			Comment:      trimmedComment(in.Comment),
			DurationSecs: null.Int64From(elapsedSeconds(since, now)),
			CreatedAt:    now,
		}
		transition.ID, err = s.transitionRepo.Append(ctx, tx, transition)
		return err
	})
	if err != nil {
		s.logger.Warn("request move failed",
			zap.Uint64("request_id", id),
			zap.Uint64("to_stage_id", in.ToStageID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RequestMoved(string(req.Status))
	s.publisher.Publish(ctx, events.RequestMovedEvent{
		Meta:       events.NewMeta(actorID, now),
		Request:    *req,
		Transition: *transition,
		FromStatus: fromStatus,
	})
	s.logger.Info("request moved",
		zap.Uint64("request_id", req.ID),
		zap.Uint64("from_stage_id", transition.FromStageID.Uint64),
		zap.Uint64("to_stage_id", transition.ToStageID),
		zap.String("status", string(req.Status)))
	return req, nil
}

func trimmedComment(c null.String) null.String {
	if !c.Valid {
		return c
	}
	trimmed := strings.TrimSpace(c.String)
	if trimmed == "" {
		return null.String{}
	}
	return null.StringFrom(trimmed)
}

// ReorderCards orders the cards of one stage column.
func (s *WorkflowService) ReorderCards(ctx context.Context, stageID uint64, ids []uint64) error {
	return s.ordering.Reorder(ctx, repositories.CardScope, stageID, ids)
}
