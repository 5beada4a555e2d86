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
	processTypeTable  = "process_types"
	processTypeFields = "id, name, slug, prefix, description, color, icon, group_id, is_active, is_external, sort_order, created_by, created_at, updated_at, deleted_at"
)

type ProcessTypeRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, pt *entities.ProcessType) (uint64, error)
	Update(ctx context.Context, tx pgx.Tx, pt *entities.ProcessType) error
	SoftDelete(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error
	Restore(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error
	// FindByID returns live rows only.
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProcessType, error)
	// FindAnyByID also returns soft-deleted rows.
	FindAnyByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProcessType, error)
	// LockByID takes a row lock held until tx ends.
	LockByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProcessType, error)
	ListByGroup(ctx context.Context, groupID string, activeOnly bool) ([]*entities.ProcessType, error)
}

type processTypeRepository struct {
	storage *pgxpool.Pool
}

func NewProcessTypeRepository(storage *pgxpool.Pool) ProcessTypeRepositoryInterface {
	return &processTypeRepository{storage: storage}
}

func (r *processTypeRepository) scanRow(row pgx.Row) (*entities.ProcessType, error) {
	var pt entities.ProcessType
	var deletedAt null.Time

	err := row.Scan(
		&pt.ID, &pt.Name, &pt.Slug, &pt.Prefix, &pt.Description, &pt.Color, &pt.Icon,
		&pt.GroupID, &pt.IsActive, &pt.IsExternal, &pt.SortOrder, &pt.CreatedBy,
		&pt.CreatedAt, &pt.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan process_type row: %w", err)
	}
	pt.Deletion = types.DeletionFromNull(deletedAt)
	return &pt, nil
}

func (r *processTypeRepository) Create(ctx context.Context, tx pgx.Tx, pt *entities.ProcessType) (uint64, error) {
	query, args, err := psql.Insert(processTypeTable).
		Columns("name", "slug", "prefix", "description", "color", "icon", "group_id", "is_active", "is_external", "sort_order", "created_by", "created_at", "updated_at").
		Values(pt.Name, pt.Slug, pt.Prefix, pt.Description, pt.Color, pt.Icon, pt.GroupID, pt.IsActive, pt.IsExternal, pt.SortOrder, pt.CreatedBy, pt.CreatedAt, pt.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build process_type insert: %w", err)
	}

	var id uint64
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create process_type: %w", mapWriteError(err, "process type", false, ""))
	}
	return id, nil
}

func (r *processTypeRepository) Update(ctx context.Context, tx pgx.Tx, pt *entities.ProcessType) error {
	query, args, err := psql.Update(processTypeTable).
		SetMap(map[string]interface{}{
			"name":        pt.Name,
			"slug":        pt.Slug,
			"prefix":      pt.Prefix,
			"description": pt.Description,
			"color":       pt.Color,
			"icon":        pt.Icon,
			"is_active":   pt.IsActive,
			"is_external": pt.IsExternal,
			"sort_order":  pt.SortOrder,
			"updated_at":  pt.UpdatedAt,
		}).
		Where(sq.Eq{"id": pt.ID}).
		Where(liveOnly("deleted_at")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build process_type update: %w", err)
	}

	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update process_type: %w", mapWriteError(err, "process type", false, ""))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *processTypeRepository) SoftDelete(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL", processTypeTable)
	tag, err := pick(r.storage, tx).Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to delete process_type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *processTypeRepository) Restore(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = NULL, updated_at = $1 WHERE id = $2 AND deleted_at IS NOT NULL", processTypeTable)
	tag, err := pick(r.storage, tx).Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to restore process_type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *processTypeRepository) findOne(ctx context.Context, q querier, where sq.Sqlizer, suffix string) (*entities.ProcessType, error) {
	builder := psql.Select(processTypeFields).From(processTypeTable).Where(where)
	if suffix != "" {
		builder = builder.Suffix(suffix)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build process_type select: %w", err)
	}
	return r.scanRow(q.QueryRow(ctx, query, args...))
}

func (r *processTypeRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProcessType, error) {
	return r.findOne(ctx, pick(r.storage, tx), sq.And{sq.Eq{"id": id}, liveOnly("deleted_at")}, "")
}

func (r *processTypeRepository) FindAnyByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProcessType, error) {
	return r.findOne(ctx, pick(r.storage, tx), sq.Eq{"id": id}, "")
}

func (r *processTypeRepository) LockByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProcessType, error) {
	return r.findOne(ctx, pick(r.storage, tx), sq.And{sq.Eq{"id": id}, liveOnly("deleted_at")}, "FOR UPDATE")
}

func (r *processTypeRepository) ListByGroup(ctx context.Context, groupID string, activeOnly bool) ([]*entities.ProcessType, error) {
	builder := psql.Select(processTypeFields).
		From(processTypeTable).
		Where(sq.Eq{"group_id": groupID}).
		Where(liveOnly("deleted_at")).
		OrderBy("sort_order ASC", "name ASC")
	if activeOnly {
		builder = builder.Where(sq.Eq{"is_active": true})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build process_type list: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list process_types: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.ProcessType, 0)
	for rows.Next() {
		pt, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, pt)
	}
	return list, rows.Err()
}
