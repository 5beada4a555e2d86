package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geniusappsio/tramita/internal/entities"
)

const (
	activityLogTable  = "activity_log"
	activityLogFields = "id, user_id, action, entity_type, entity_id, request_id, old_value, new_value, details, correlation_id, created_at"
)

type ActivityLogRepositoryInterface interface {
	Append(ctx context.Context, entry *entities.ActivityLog) (uint64, error)
	ListByRequest(ctx context.Context, requestID uint64, limit uint64) ([]*entities.ActivityLog, error)
}

type activityLogRepository struct {
	storage *pgxpool.Pool
}

func NewActivityLogRepository(storage *pgxpool.Pool) ActivityLogRepositoryInterface {
	return &activityLogRepository{storage: storage}
}

func (r *activityLogRepository) Append(ctx context.Context, entry *entities.ActivityLog) (uint64, error) {
	query, args, err := psql.Insert(activityLogTable).
		Columns("user_id", "action", "entity_type", "entity_id", "request_id", "old_value", "new_value", "details", "correlation_id", "created_at").
		Values(entry.UserID, entry.Action, entry.EntityType, entry.EntityID, entry.RequestID, entry.OldValue, entry.NewValue,
			entry.Details, entry.CorrelationID, entry.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build activity_log insert: %w", err)
	}

	var id uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to append activity_log: %w", err)
	}
	return id, nil
}

func (r *activityLogRepository) ListByRequest(ctx context.Context, requestID uint64, limit uint64) ([]*entities.ActivityLog, error) {
	query, args, err := psql.Select(activityLogFields).
		From(activityLogTable).
		Where(sq.Eq{"request_id": requestID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build activity_log list: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity_log: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.ActivityLog, 0)
	for rows.Next() {
		var e entities.ActivityLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &e.RequestID,
			&e.OldValue, &e.NewValue, &e.Details, &e.CorrelationID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity_log row: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
