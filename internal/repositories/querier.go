package repositories

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/geniusappsio/tramita/pkg/errors"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// pick returns the transaction when there is one, the pool otherwise.
func pick(pool *pgxpool.Pool, tx pgx.Tx) querier {
	if tx != nil {
		return tx
	}
	return pool
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgErrorCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// mapWriteError turns constraint violations into the error taxonomy.
// fkField names the input field blamed for a foreign key violation.
func mapWriteError(err error, resource string, retryable bool, fkField string) error {
	code, _ := pgErrorCode(err)
	switch code {
	case pgUniqueViolation:
		return apperrors.NewConflictError(resource, retryable, err)
	case pgForeignKeyViolation:
		if fkField == "" {
			fkField = resource
		}
		return apperrors.NewValidationError(fkField, "Referenced record does not exist")
	}
	return err
}

// liveOnly filters out soft-deleted rows.
func liveOnly(column string) sq.Sqlizer {
	return sq.Eq{column: nil}
}
