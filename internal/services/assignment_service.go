package services

import (
	"context"
	"errors"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/events"
	"github.com/geniusappsio/tramita/internal/repositories"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/utils"
)

type AssignmentServiceInterface interface {
	// Assign is idempotent: assigning an already active (user, role) returns the existing row.
	Assign(ctx context.Context, requestID uint64, in dto.AssignDTO, actorID string) (*entities.Assignment, error)
	Unassign(ctx context.Context, requestID uint64, userID, role, actorID string) (*entities.Assignment, error)
	// ListByRequest and ListByUser return active assignments only.
	ListByRequest(ctx context.Context, requestID uint64) ([]*entities.Assignment, error)
	ListByUser(ctx context.Context, userID string) ([]*entities.Assignment, error)
}

type AssignmentService struct {
	assignmentRepo repositories.AssignmentRepositoryInterface
	requestRepo    repositories.RequestRepositoryInterface
	txManager      repositories.TxManagerInterface
	publisher      EventPublisher
	clock          utils.Clock
	logger         *zap.Logger
}

func NewAssignmentService(
	assignmentRepo repositories.AssignmentRepositoryInterface,
	requestRepo repositories.RequestRepositoryInterface,
	txManager repositories.TxManagerInterface,
	publisher EventPublisher,
	clock utils.Clock,
	logger *zap.Logger,
) AssignmentServiceInterface {
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		requestRepo:    requestRepo,
		txManager:      txManager,
		publisher:      publisher,
		clock:          clock,
		logger:         logger,
	}
}

func assignmentRole(role string) string {
	if role = strings.TrimSpace(role); role == "" {
		return entities.DefaultAssignmentRole
	}
	return role
}

func (s *AssignmentService) Assign(ctx context.Context, requestID uint64, in dto.AssignDTO, actorID string) (*entities.Assignment, error) {
	userID := strings.TrimSpace(in.UserID)
	role := assignmentRole(in.Role)
	actorID = strings.TrimSpace(actorID)

	var (
		req        *entities.Request
		assignment *entities.Assignment
		changed    bool
	)
	now := s.clock.Now()

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		req, err = s.requestRepo.FindByID(ctx, tx, requestID)
		if err != nil {
			return err
		}

		v := &apperrors.ValidationError{}
		if userID == "" {
			v.Add("userId", "User is required")
		}
		if actorID == "" {
			v.Add("actorId", "Acting user is required")
		}
		if err := v.OrNil(); err != nil {
			return err
		}

		existing, err := s.assignmentRepo.Find(ctx, tx, requestID, userID, role)
		switch {
		case err == nil && existing.IsActive:
			assignment = existing
			return nil
		case err != nil && !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		assignment, err = s.assignmentRepo.Activate(ctx, tx, &entities.Assignment{
			RequestID:  requestID,
			UserID:     userID,
			Role:       role,
			AssignedBy: actorID,
			AssignedAt: now,
			IsActive:   true,
		})
		changed = err == nil
		return err
	})
	if err != nil {
		s.logger.Warn("assignment failed", zap.Uint64("request_id", requestID), zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if changed {
		s.publisher.Publish(ctx, events.RequestAssignedEvent{Meta: events.NewMeta(actorID, now), Request: *req, Assignment: *assignment})
		s.logger.Info("user assigned", zap.Uint64("request_id", requestID), zap.String("user_id", userID), zap.String("role", role))
	}
	return assignment, nil
}

func (s *AssignmentService) Unassign(ctx context.Context, requestID uint64, userID, role, actorID string) (*entities.Assignment, error) {
	userID = strings.TrimSpace(userID)
	role = assignmentRole(role)
	actorID = strings.TrimSpace(actorID)

	var (
		req        *entities.Request
		assignment *entities.Assignment
	)
	now := s.clock.Now()

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		req, err = s.requestRepo.FindByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if actorID == "" {
			return apperrors.NewValidationError("actorId", "Acting user is required")
		}

		assignment, err = s.assignmentRepo.Find(ctx, tx, requestID, userID, role)
		if err != nil {
			return err
		}
		if !assignment.IsActive {
			return apperrors.ErrNotFound
		}
		if err := s.assignmentRepo.Deactivate(ctx, tx, assignment.ID, now); err != nil {
			return err
		}
		assignment.IsActive = false
		assignment.UnassignedAt = null.TimeFrom(now)
		return nil
	})
	if err != nil {
		s.logger.Warn("unassignment failed", zap.Uint64("request_id", requestID), zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.publisher.Publish(ctx, events.RequestUnassignedEvent{Meta: events.NewMeta(actorID, now), Request: *req, Assignment: *assignment})
	return assignment, nil
}

func (s *AssignmentService) ListByRequest(ctx context.Context, requestID uint64) ([]*entities.Assignment, error) {
	if _, err := s.requestRepo.FindByID(ctx, nil, requestID); err != nil {
		return nil, err
	}
	return s.assignmentRepo.ListByRequest(ctx, requestID)
}

func (s *AssignmentService) ListByUser(ctx context.Context, userID string) ([]*entities.Assignment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidationError("userId", "User is required")
	}
	return s.assignmentRepo.ListByUser(ctx, userID)
}
