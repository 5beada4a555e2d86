package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/repositories"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/metrics"
	"github.com/geniusappsio/tramita/pkg/utils"
)

// Protocol numbers look like "MEM-2026/000042". Sequences wider than six digits keep all digits.
var protocolNumberRe = regexp.MustCompile(`^(.+)-(\d{4})/(\d{6,})$`)

func FormatProtocolNumber(prefix string, year int, sequence int64) string {
	return fmt.Sprintf("%s-%04d/%06d", prefix, year, sequence)
}

// ParseProtocolNumber is the inverse of FormatProtocolNumber.
func ParseProtocolNumber(fullNumber string) (prefix string, year int, sequence int64, err error) {
	m := protocolNumberRe.FindStringSubmatch(fullNumber)
	if m == nil {
		return "", 0, 0, apperrors.NewValidationError("protocolNumber", "Malformed protocol number")
	}
	year, _ = strconv.Atoi(m[2])
	sequence, err = strconv.ParseInt(m[3], 10, 64)
	if err != nil || sequence < 1 {
		return "", 0, 0, apperrors.NewValidationError("protocolNumber", "Malformed protocol number")
	}
	return m[1], year, sequence, nil
}

type ProtocolAllocatorInterface interface {
	// Allocate takes the next number of the (current year, prefix, groupID) domain inside tx.
	Allocate(ctx context.Context, tx pgx.Tx, processTypeID uint64, prefix, groupID string) (*entities.Protocol, error)
	// AllocateProtocol runs Allocate in its own transaction.
	AllocateProtocol(ctx context.Context, processTypeID uint64, prefix, groupID string) (*entities.Protocol, error)
	Lookup(ctx context.Context, fullNumber string) (*entities.Protocol, error)
}

type ProtocolAllocator struct {
	sequenceRepo repositories.SequenceRepositoryInterface
	protocolRepo repositories.ProtocolRepositoryInterface
	txManager    repositories.TxManagerInterface
	clock        utils.Clock
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewProtocolAllocator(
	sequenceRepo repositories.SequenceRepositoryInterface,
	protocolRepo repositories.ProtocolRepositoryInterface,
	txManager repositories.TxManagerInterface,
	clock utils.Clock,
	metrics *metrics.Metrics,
	logger *zap.Logger,
) ProtocolAllocatorInterface {
	return &ProtocolAllocator{
		sequenceRepo: sequenceRepo,
		protocolRepo: protocolRepo,
		txManager:    txManager,
		clock:        clock,
		metrics:      metrics,
		logger:       logger,
	}
}

func validateAllocation(prefix, groupID string) error {
	v := &apperrors.ValidationError{}
	if strings.TrimSpace(prefix) == "" {
		v.Add("prefix", "Prefix is required")
	}
	if strings.TrimSpace(groupID) == "" {
		v.Add("groupId", "Group is required")
	}
	return v.OrNil()
}

func (s *ProtocolAllocator) Allocate(ctx context.Context, tx pgx.Tx, processTypeID uint64, prefix, groupID string) (*entities.Protocol, error) {
	if err := validateAllocation(prefix, groupID); err != nil {
		return nil, err
	}

	owner, err := s.sequenceRepo.ClaimPrefix(ctx, tx, prefix, groupID)
	if err != nil {
		return nil, err
	}
	if owner != groupID {
		s.logger.Warn("protocol prefix owned by another group",
			zap.String("prefix", prefix),
			zap.String("group_id", groupID))
		return nil, apperrors.NewConflictError("prefix", false, fmt.Errorf("prefix %s is owned by another group", prefix))
	}

	now := s.clock.Now()
	year := now.Year()

	next, err := s.sequenceRepo.Next(ctx, tx, year, prefix, groupID)
	if err != nil {
		return nil, err
	}

	protocol := &entities.Protocol{
		Year:          year,
		Sequence:      next,
		Prefix:        prefix,
		FullNumber:    FormatProtocolNumber(prefix, year, next),
		ProcessTypeID: processTypeID,
		GroupID:       groupID,
		CreatedAt:     now,
	}

	id, err := s.protocolRepo.Create(ctx, tx, protocol)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.metrics.ProtocolConflict()
			s.logger.Warn("protocol number already taken",
				zap.String("protocol", protocol.FullNumber),
				zap.String("group_id", groupID))
		}
		return nil, err
	}
	protocol.ID = id

	s.metrics.ProtocolAllocated(prefix)
	return protocol, nil
}

func (s *ProtocolAllocator) AllocateProtocol(ctx context.Context, processTypeID uint64, prefix, groupID string) (*entities.Protocol, error) {
	var protocol *entities.Protocol
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		protocol, err = s.Allocate(ctx, tx, processTypeID, prefix, groupID)
		return err
	})
	if err != nil {
		s.logger.Error("protocol allocation failed",
			zap.Uint64("process_type_id", processTypeID),
			zap.String("prefix", prefix),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("protocol allocated", zap.String("protocol", protocol.FullNumber))
	return protocol, nil
}

func (s *ProtocolAllocator) Lookup(ctx context.Context, fullNumber string) (*entities.Protocol, error) {
	fullNumber = strings.TrimSpace(fullNumber)
	if _, _, _, err := ParseProtocolNumber(fullNumber); err != nil {
		return nil, err
	}
	return s.protocolRepo.FindByFullNumber(ctx, fullNumber)
}
