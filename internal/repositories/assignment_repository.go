package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geniusappsio/tramita/internal/entities"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
)

const (
	assignmentTable  = "assignments"
	assignmentFields = "id, request_id, user_id, role, assigned_by, assigned_at, unassigned_at, is_active"
)

type AssignmentRepositoryInterface interface {
	// Activate inserts the assignment or reactivates the existing (request, user, role) row.
	Activate(ctx context.Context, tx pgx.Tx, a *entities.Assignment) (*entities.Assignment, error)
	Deactivate(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error
	// Find returns the row for (request, user, role) whether it is active or not.
	Find(ctx context.Context, tx pgx.Tx, requestID uint64, userID, role string) (*entities.Assignment, error)
	ListByRequest(ctx context.Context, requestID uint64) ([]*entities.Assignment, error)
	ListByUser(ctx context.Context, userID string) ([]*entities.Assignment, error)
}

type assignmentRepository struct {
	storage *pgxpool.Pool
}

func NewAssignmentRepository(storage *pgxpool.Pool) AssignmentRepositoryInterface {
	return &assignmentRepository{storage: storage}
}

func (r *assignmentRepository) scanRow(row pgx.Row) (*entities.Assignment, error) {
	var a entities.Assignment
	err := row.Scan(&a.ID, &a.RequestID, &a.UserID, &a.Role, &a.AssignedBy, &a.AssignedAt, &a.UnassignedAt, &a.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan assignment row: %w", err)
	}
	return &a, nil
}

func (r *assignmentRepository) Activate(ctx context.Context, tx pgx.Tx, a *entities.Assignment) (*entities.Assignment, error) {
	query, args, err := psql.Insert(assignmentTable).
		Columns("request_id", "user_id", "role", "assigned_by", "assigned_at", "is_active").
		Values(a.RequestID, a.UserID, a.Role, a.AssignedBy, a.AssignedAt, true).
		Suffix(`ON CONFLICT (request_id, user_id, role) DO UPDATE
			SET is_active = TRUE, assigned_by = EXCLUDED.assigned_by,
				assigned_at = EXCLUDED.assigned_at, unassigned_at = NULL
			RETURNING ` + assignmentFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build assignment upsert: %w", err)
	}

	saved, err := r.scanRow(pick(r.storage, tx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to save assignment: %w", mapWriteError(err, "assignment", false, "requestId"))
	}
	return saved, nil
}

func (r *assignmentRepository) Deactivate(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET is_active = FALSE, unassigned_at = $1 WHERE id = $2 AND is_active", assignmentTable)
	tag, err := pick(r.storage, tx).Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *assignmentRepository) Find(ctx context.Context, tx pgx.Tx, requestID uint64, userID, role string) (*entities.Assignment, error) {
	query, args, err := psql.Select(assignmentFields).
		From(assignmentTable).
		Where(sq.Eq{"request_id": requestID, "user_id": userID, "role": role}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build assignment select: %w", err)
	}
	return r.scanRow(pick(r.storage, tx).QueryRow(ctx, query, args...))
}

func (r *assignmentRepository) ListByRequest(ctx context.Context, requestID uint64) ([]*entities.Assignment, error) {
	return r.list(ctx, sq.Eq{"request_id": requestID, "is_active": true})
}

func (r *assignmentRepository) ListByUser(ctx context.Context, userID string) ([]*entities.Assignment, error) {
	return r.list(ctx, sq.Eq{"user_id": userID, "is_active": true})
}

func (r *assignmentRepository) list(ctx context.Context, where sq.Eq) ([]*entities.Assignment, error) {
	query, args, err := psql.Select(assignmentFields).
		From(assignmentTable).
		Where(where).
		OrderBy("assigned_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build assignment list: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.Assignment, 0)
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
