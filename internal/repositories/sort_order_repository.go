package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderScope names a table whose rows carry a dense sort_order within a parent.
type OrderScope struct {
	name         string
	table        string
	parentColumn string
}

var (
	StageScope = OrderScope{name: "stages", table: stageTable, parentColumn: "process_type_id"}
	FieldScope = OrderScope{name: "form_fields", table: formFieldTable, parentColumn: "template_id"}
	CardScope  = OrderScope{name: "requests", table: requestTable, parentColumn: "current_stage_id"}
)

func (s OrderScope) Name() string { return s.name }

type SortOrderRepositoryInterface interface {
	// MemberIDs returns the live row IDs under parentID.
	MemberIDs(ctx context.Context, tx pgx.Tx, scope OrderScope, parentID uint64) ([]uint64, error)
	// Apply sets sort_order to each ID's index in ids with a single statement.
	Apply(ctx context.Context, tx pgx.Tx, scope OrderScope, parentID uint64, ids []uint64) error
}

type sortOrderRepository struct {
	storage *pgxpool.Pool
}

func NewSortOrderRepository(storage *pgxpool.Pool) SortOrderRepositoryInterface {
	return &sortOrderRepository{storage: storage}
}

func (r *sortOrderRepository) MemberIDs(ctx context.Context, tx pgx.Tx, scope OrderScope, parentID uint64) ([]uint64, error) {
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s = $1 AND deleted_at IS NULL ORDER BY sort_order, id", scope.table, scope.parentColumn)

	rows, err := pick(r.storage, tx).Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s scope: %w", scope.name, err)
	}
	defer rows.Close()

	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", scope.name, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sortOrderRepository) Apply(ctx context.Context, tx pgx.Tx, scope OrderScope, parentID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	positions := make([]int32, len(ids))
	for i := range ids {
		positions[i] = int32(i)
	}

	query := fmt.Sprintf(`UPDATE %[1]s AS t SET sort_order = o.position, updated_at = NOW()
		FROM unnest($1::bigint[], $2::int[]) AS o(id, position)
		WHERE t.id = o.id AND t.%[2]s = $3 AND t.deleted_at IS NULL`, scope.table, scope.parentColumn)

	tag, err := pick(r.storage, tx).Exec(ctx, query, toInt64s(ids), positions, parentID)
	if err != nil {
		return fmt.Errorf("failed to reorder %s: %w", scope.name, err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("failed to reorder %s: updated %d of %d rows", scope.name, tag.RowsAffected(), len(ids))
	}
	return nil
}
