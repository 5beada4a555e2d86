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
	requestTable  = "requests"
	requestFields = `r.id, r.protocol_id, p.full_number, r.process_type_id, r.current_stage_id, r.title, r.description,
		r.priority, r.status, r.due_date, r.completed_at, r.requester_id, r.requester_name, r.group_id, r.sort_order,
		r.metadata, r.is_confidential, r.created_at, r.updated_at, r.deleted_at`
	requestFrom = "requests r LEFT JOIN protocols p ON p.id = r.protocol_id"
)

type RequestRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, req *entities.Request) (uint64, error)
	// Update persists the editable columns together with stage placement and derived status.
	Update(ctx context.Context, tx pgx.Tx, req *entities.Request) error
	SoftDelete(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Request, error)
	FindByProtocolNumber(ctx context.Context, fullNumber string) (*entities.Request, error)
	ListByStage(ctx context.Context, stageID uint64) ([]*entities.Request, error)
	ListByProcessType(ctx context.Context, processTypeID uint64) ([]*entities.Request, error)
	ListByRequester(ctx context.Context, requesterID, groupID string) ([]*entities.Request, error)
	// CountByStage maps stage ID to the number of live requests in it.
	CountByStage(ctx context.Context, processTypeID uint64) (map[uint64]int, error)
	CountInStage(ctx context.Context, tx pgx.Tx, stageID uint64) (int, error)
	Search(ctx context.Context, groupID string, filter entities.RequestFilter, limit, offset uint64) ([]*entities.Request, uint64, error)
}

type requestRepository struct {
	storage *pgxpool.Pool
}

func NewRequestRepository(storage *pgxpool.Pool) RequestRepositoryInterface {
	return &requestRepository{storage: storage}
}

func (r *requestRepository) scanRow(row pgx.Row) (*entities.Request, error) {
	var req entities.Request
	var deletedAt null.Time
	var status string

	err := row.Scan(
		&req.ID, &req.ProtocolID, &req.ProtocolNumber, &req.ProcessTypeID, &req.CurrentStageID, &req.Title, &req.Description,
		&req.Priority, &status, &req.DueDate, &req.CompletedAt, &req.RequesterID, &req.RequesterName, &req.GroupID, &req.SortOrder,
		&req.Metadata, &req.IsConfidential, &req.CreatedAt, &req.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan request row: %w", err)
	}

	req.Status = entities.RequestStatus(status)
	if req.Metadata == nil {
		req.Metadata = map[string]interface{}{}
	}
	req.Deletion = types.DeletionFromNull(deletedAt)
	return &req, nil
}

func (r *requestRepository) scanRows(rows pgx.Rows) ([]*entities.Request, error) {
	defer rows.Close()

	list := make([]*entities.Request, 0)
	for rows.Next() {
		req, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, req)
	}
	return list, rows.Err()
}

func metadataOrEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func (r *requestRepository) Create(ctx context.Context, tx pgx.Tx, req *entities.Request) (uint64, error) {
	query, args, err := psql.Insert(requestTable).
		Columns("protocol_id", "process_type_id", "current_stage_id", "title", "description", "priority", "status",
			"due_date", "completed_at", "requester_id", "requester_name", "group_id", "sort_order", "metadata",
			"is_confidential", "created_at", "updated_at").
		Values(req.ProtocolID, req.ProcessTypeID, req.CurrentStageID, req.Title, req.Description, int(req.Priority), string(req.Status),
			req.DueDate, req.CompletedAt, req.RequesterID, req.RequesterName, req.GroupID, req.SortOrder, metadataOrEmpty(req.Metadata),
			req.IsConfidential, req.CreatedAt, req.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build request insert: %w", err)
	}

	var id uint64
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create request: %w", mapWriteError(err, "request", false, "processTypeId"))
	}
	return id, nil
}

func (r *requestRepository) Update(ctx context.Context, tx pgx.Tx, req *entities.Request) error {
	query, args, err := psql.Update(requestTable).
		SetMap(map[string]interface{}{
			"current_stage_id": req.CurrentStageID,
			"title":            req.Title,
			"description":      req.Description,
			"priority":         int(req.Priority),
			"status":           string(req.Status),
			"due_date":         req.DueDate,
			"completed_at":     req.CompletedAt,
			"requester_name":   req.RequesterName,
			"sort_order":       req.SortOrder,
			"metadata":         metadataOrEmpty(req.Metadata),
			"is_confidential":  req.IsConfidential,
			"updated_at":       req.UpdatedAt,
		}).
		Where(sq.Eq{"id": req.ID}).
		Where(liveOnly("deleted_at")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build request update: %w", err)
	}

	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", mapWriteError(err, "request", false, "toStageId"))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *requestRepository) SoftDelete(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL", requestTable)
	tag, err := pick(r.storage, tx).Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *requestRepository) selectLive() sq.SelectBuilder {
	return psql.Select(requestFields).From(requestFrom).Where(liveOnly("r.deleted_at"))
}

func (r *requestRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Request, error) {
	query, args, err := r.selectLive().Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build request select: %w", err)
	}
	return r.scanRow(pick(r.storage, tx).QueryRow(ctx, query, args...))
}

func (r *requestRepository) FindByProtocolNumber(ctx context.Context, fullNumber string) (*entities.Request, error) {
	query, args, err := r.selectLive().Where(sq.Eq{"p.full_number": fullNumber}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build request select: %w", err)
	}
	return r.scanRow(r.storage.QueryRow(ctx, query, args...))
}

func (r *requestRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]*entities.Request, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build request list: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return r.scanRows(rows)
}

func (r *requestRepository) ListByStage(ctx context.Context, stageID uint64) ([]*entities.Request, error) {
	return r.list(ctx, r.selectLive().
		Where(sq.Eq{"r.current_stage_id": stageID}).
		OrderBy("r.sort_order ASC", "r.id ASC"))
}

func (r *requestRepository) ListByProcessType(ctx context.Context, processTypeID uint64) ([]*entities.Request, error) {
	return r.list(ctx, r.selectLive().
		Where(sq.Eq{"r.process_type_id": processTypeID}).
		OrderBy("r.current_stage_id ASC", "r.sort_order ASC", "r.id ASC"))
}

func (r *requestRepository) ListByRequester(ctx context.Context, requesterID, groupID string) ([]*entities.Request, error) {
	return r.list(ctx, r.selectLive().
		Where(sq.Eq{"r.requester_id": requesterID, "r.group_id": groupID}).
		OrderBy("r.created_at DESC", "r.id DESC"))
}

func (r *requestRepository) CountByStage(ctx context.Context, processTypeID uint64) (map[uint64]int, error) {
	query := fmt.Sprintf(`SELECT current_stage_id, COUNT(*) FROM %s
		WHERE process_type_id = $1 AND deleted_at IS NULL
		GROUP BY current_stage_id`, requestTable)

	rows, err := r.storage.Query(ctx, query, processTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests by stage: %w", err)
	}
	defer rows.Close()

	counts := make(map[uint64]int)
	for rows.Next() {
		var stageID uint64
		var count int
		if err := rows.Scan(&stageID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stage count: %w", err)
		}
		counts[stageID] = count
	}
	return counts, rows.Err()
}

func (r *requestRepository) CountInStage(ctx context.Context, tx pgx.Tx, stageID uint64) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE current_stage_id = $1 AND deleted_at IS NULL", requestTable)
	var count int
	if err := pick(r.storage, tx).QueryRow(ctx, query, stageID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count requests in stage: %w", err)
	}
	return count, nil
}

func (r *requestRepository) searchConditions(groupID string, filter entities.RequestFilter) sq.And {
	where := sq.And{sq.Eq{"r.group_id": groupID}, liveOnly("r.deleted_at")}

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		where = append(where, sq.Or{
			sq.ILike{"r.title": pattern},
			sq.ILike{"p.full_number": pattern},
			sq.ILike{"r.requester_name": pattern},
		})
	}
	if filter.ProcessTypeID != 0 {
		where = append(where, sq.Eq{"r.process_type_id": filter.ProcessTypeID})
	}
	if filter.StageID != 0 {
		where = append(where, sq.Eq{"r.current_stage_id": filter.StageID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"r.status": string(filter.Status)})
	}
	if filter.Priority != 0 {
		where = append(where, sq.Eq{"r.priority": int(filter.Priority)})
	}
	if filter.RequesterID != "" {
		where = append(where, sq.Eq{"r.requester_id": filter.RequesterID})
	}
	return where
}

func (r *requestRepository) Search(ctx context.Context, groupID string, filter entities.RequestFilter, limit, offset uint64) ([]*entities.Request, uint64, error) {
	where := r.searchConditions(groupID, filter)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(requestFrom).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request count: %w", err)
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}
	if total == 0 {
		return []*entities.Request{}, 0, nil
	}

	list, err := r.list(ctx, psql.Select(requestFields).
		From(requestFrom).
		Where(where).
		OrderBy("r.priority ASC", "r.created_at DESC", "r.id DESC").
		Limit(limit).
		Offset(offset))
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
