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
	stageTransitionTable  = "stage_transitions"
	stageTransitionFields = "id, request_id, from_stage_id, to_stage_id, user_id, comment, duration_secs, created_at"
)

// StageTransitionRepositoryInterface is insert-only: history rows are never updated or deleted.
type StageTransitionRepositoryInterface interface {
	Append(ctx context.Context, tx pgx.Tx, t *entities.StageTransition) (uint64, error)
	// LastForRequest returns the most recent transition or ErrNotFound when there is none.
	LastForRequest(ctx context.Context, tx pgx.Tx, requestID uint64) (*entities.StageTransition, error)
	ListByRequest(ctx context.Context, requestID uint64) ([]*entities.StageTransition, error)
}

type stageTransitionRepository struct {
	storage *pgxpool.Pool
}

func NewStageTransitionRepository(storage *pgxpool.Pool) StageTransitionRepositoryInterface {
	return &stageTransitionRepository{storage: storage}
}

func (r *stageTransitionRepository) scanRow(row pgx.Row) (*entities.StageTransition, error) {
	var t entities.StageTransition
	err := row.Scan(&t.ID, &t.RequestID, &t.FromStageID, &t.ToStageID, &t.UserID, &t.Comment, &t.DurationSecs, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan stage_transition row: %w", err)
	}
	return &t, nil
}

func (r *stageTransitionRepository) Append(ctx context.Context, tx pgx.Tx, t *entities.StageTransition) (uint64, error) {
	query, args, err := psql.Insert(stageTransitionTable).
		Columns("request_id", "from_stage_id", "to_stage_id", "user_id", "comment", "duration_secs", "created_at").
		Values(t.RequestID, t.FromStageID, t.ToStageID, t.UserID, t.Comment, t.DurationSecs, t.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build stage_transition insert: %w", err)
	}

	var id uint64
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to append stage_transition: %w", mapWriteError(err, "stage transition", false, "toStageId"))
	}
	return id, nil
}

func (r *stageTransitionRepository) LastForRequest(ctx context.Context, tx pgx.Tx, requestID uint64) (*entities.StageTransition, error) {
	query, args, err := psql.Select(stageTransitionFields).
		From(stageTransitionTable).
		Where(sq.Eq{"request_id": requestID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stage_transition select: %w", err)
	}
	return r.scanRow(pick(r.storage, tx).QueryRow(ctx, query, args...))
}

func (r *stageTransitionRepository) ListByRequest(ctx context.Context, requestID uint64) ([]*entities.StageTransition, error) {
	query, args, err := psql.Select(stageTransitionFields).
		From(stageTransitionTable).
		Where(sq.Eq{"request_id": requestID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stage_transition list: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage_transitions: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.StageTransition, 0)
	for rows.Next() {
		t, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
