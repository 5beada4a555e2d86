package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geniusappsio/tramita/internal/entities"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/types"
)

const (
	stageTable  = "stages"
	stageFields = "id, process_type_id, name, slug, description, color, sort_order, is_initial, is_final, allowed_next, sla_hours, is_active, created_at, updated_at, deleted_at"
)

type StageRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, stage *entities.Stage) (uint64, error)
	Update(ctx context.Context, tx pgx.Tx, stage *entities.Stage) error
	SoftDelete(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Stage, error)
	// ListByProcessType returns live stages ordered by sort_order.
	ListByProcessType(ctx context.Context, tx pgx.Tx, processTypeID uint64) ([]*entities.Stage, error)
	FindInitial(ctx context.Context, tx pgx.Tx, processTypeID uint64) (*entities.Stage, error)
	CountByProcessType(ctx context.Context, tx pgx.Tx, processTypeID uint64) (int, error)
	// InitialExists reports whether a live initial stage other than excludeID exists.
	InitialExists(ctx context.Context, tx pgx.Tx, processTypeID, excludeID uint64) (bool, error)
}

type stageRepository struct {
	storage *pgxpool.Pool
}

func NewStageRepository(storage *pgxpool.Pool) StageRepositoryInterface {
	return &stageRepository{storage: storage}
}

func (r *stageRepository) scanRow(row pgx.Row) (*entities.Stage, error) {
	var s entities.Stage
	var deletedAt null.Time
	var allowedNext []int64

	err := row.Scan(
		&s.ID, &s.ProcessTypeID, &s.Name, &s.Slug, &s.Description, &s.Color, &s.SortOrder,
		&s.IsInitial, &s.IsFinal, &allowedNext, &s.SLAHours, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan stage row: %w", err)
	}

	s.AllowedNext = make([]uint64, 0, len(allowedNext))
	for _, id := range allowedNext {
		s.AllowedNext = append(s.AllowedNext, uint64(id))
	}
	s.Deletion = types.DeletionFromNull(deletedAt)
	return &s, nil
}

func toInt64s(ids []uint64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}

func (r *stageRepository) Create(ctx context.Context, tx pgx.Tx, stage *entities.Stage) (uint64, error) {
	query, args, err := psql.Insert(stageTable).
		Columns("process_type_id", "name", "slug", "description", "color", "sort_order", "is_initial", "is_final", "allowed_next", "sla_hours", "is_active", "created_at", "updated_at").
		Values(stage.ProcessTypeID, stage.Name, stage.Slug, stage.Description, stage.Color, stage.SortOrder,
			stage.IsInitial, stage.IsFinal, toInt64s(stage.AllowedNext), stage.SLAHours, stage.IsActive, stage.CreatedAt, stage.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build stage insert: %w", err)
	}

	var id uint64
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create stage: %w", mapWriteError(err, "stage", false, "processTypeId"))
	}
	return id, nil
}

func (r *stageRepository) Update(ctx context.Context, tx pgx.Tx, stage *entities.Stage) error {
	query, args, err := psql.Update(stageTable).
		SetMap(map[string]interface{}{
			"name":         stage.Name,
			"slug":         stage.Slug,
			"description":  stage.Description,
			"color":        stage.Color,
			"is_initial":   stage.IsInitial,
			"is_final":     stage.IsFinal,
			"allowed_next": toInt64s(stage.AllowedNext),
			"sla_hours":    stage.SLAHours,
			"is_active":    stage.IsActive,
			"updated_at":   stage.UpdatedAt,
		}).
		Where(sq.Eq{"id": stage.ID}).
		Where(liveOnly("deleted_at")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build stage update: %w", err)
	}

	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", mapWriteError(err, "stage", false, ""))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *stageRepository) SoftDelete(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL", stageTable)
	tag, err := pick(r.storage, tx).Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *stageRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Stage, error) {
	query, args, err := psql.Select(stageFields).
		From(stageTable).
		Where(sq.Eq{"id": id}).
		Where(liveOnly("deleted_at")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stage select: %w", err)
	}
	return r.scanRow(pick(r.storage, tx).QueryRow(ctx, query, args...))
}

func (r *stageRepository) ListByProcessType(ctx context.Context, tx pgx.Tx, processTypeID uint64) ([]*entities.Stage, error) {
	query, args, err := psql.Select(stageFields).
		From(stageTable).
		Where(sq.Eq{"process_type_id": processTypeID}).
		Where(liveOnly("deleted_at")).
		OrderBy("sort_order ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stage list: %w", err)
	}

	rows, err := pick(r.storage, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.Stage, 0)
	for rows.Next() {
		s, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *stageRepository) FindInitial(ctx context.Context, tx pgx.Tx, processTypeID uint64) (*entities.Stage, error) {
	query, args, err := psql.Select(stageFields).
		From(stageTable).
		Where(sq.Eq{"process_type_id": processTypeID, "is_initial": true}).
		Where(liveOnly("deleted_at")).
		OrderBy("sort_order ASC", "id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build initial stage select: %w", err)
	}
	return r.scanRow(pick(r.storage, tx).QueryRow(ctx, query, args...))
}

func (r *stageRepository) CountByProcessType(ctx context.Context, tx pgx.Tx, processTypeID uint64) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE process_type_id = $1 AND deleted_at IS NULL", stageTable)
	var count int
	if err := pick(r.storage, tx).QueryRow(ctx, query, processTypeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stages: %w", err)
	}
	return count, nil
}

func (r *stageRepository) InitialExists(ctx context.Context, tx pgx.Tx, processTypeID, excludeID uint64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (
		SELECT 1 FROM %s
		WHERE process_type_id = $1 AND is_initial AND deleted_at IS NULL AND id <> $2
	)`, stageTable)
	var exists bool
	if err := pick(r.storage, tx).QueryRow(ctx, query, processTypeID, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check initial stage: %w", err)
	}
	return exists, nil
}
