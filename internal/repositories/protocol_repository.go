package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geniusappsio/tramita/internal/entities"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
)

const (
	protocolTable  = "protocols"
	protocolFields = "id, year, sequence, prefix, full_number, process_type_id, group_id, request_id, created_at"
)

type ProtocolRepositoryInterface interface {
	// Create inserts a protocol. A unique violation is a retryable conflict.
	Create(ctx context.Context, tx pgx.Tx, p *entities.Protocol) (uint64, error)
	LinkRequest(ctx context.Context, tx pgx.Tx, protocolID, requestID uint64) error
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Protocol, error)
	FindByFullNumber(ctx context.Context, fullNumber string) (*entities.Protocol, error)
}

type protocolRepository struct {
	storage *pgxpool.Pool
}

func NewProtocolRepository(storage *pgxpool.Pool) ProtocolRepositoryInterface {
	return &protocolRepository{storage: storage}
}

func (r *protocolRepository) scanRow(row pgx.Row) (*entities.Protocol, error) {
	var p entities.Protocol
	err := row.Scan(&p.ID, &p.Year, &p.Sequence, &p.Prefix, &p.FullNumber, &p.ProcessTypeID, &p.GroupID, &p.RequestID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan protocol row: %w", err)
	}
	return &p, nil
}

func (r *protocolRepository) Create(ctx context.Context, tx pgx.Tx, p *entities.Protocol) (uint64, error) {
	query, args, err := psql.Insert(protocolTable).
		Columns("year", "sequence", "prefix", "full_number", "process_type_id", "group_id", "request_id", "created_at").
		Values(p.Year, p.Sequence, p.Prefix, p.FullNumber, p.ProcessTypeID, p.GroupID, p.RequestID, p.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build protocol insert: %w", err)
	}

	var id uint64
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create protocol %s: %w", p.FullNumber, mapWriteError(err, "protocol", true, "processTypeId"))
	}
	return id, nil
}

func (r *protocolRepository) LinkRequest(ctx context.Context, tx pgx.Tx, protocolID, requestID uint64) error {
	query := fmt.Sprintf("UPDATE %s SET request_id = $1 WHERE id = $2", protocolTable)
	tag, err := pick(r.storage, tx).Exec(ctx, query, requestID, protocolID)
	if err != nil {
		return fmt.Errorf("failed to link protocol to request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *protocolRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Protocol, error) {
	query, args, err := psql.Select(protocolFields).From(protocolTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build protocol select: %w", err)
	}
	return r.scanRow(pick(r.storage, tx).QueryRow(ctx, query, args...))
}

func (r *protocolRepository) FindByFullNumber(ctx context.Context, fullNumber string) (*entities.Protocol, error) {
	query, args, err := psql.Select(protocolFields).From(protocolTable).Where(sq.Eq{"full_number": fullNumber}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build protocol select: %w", err)
	}
	return r.scanRow(r.storage.QueryRow(ctx, query, args...))
}
