package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	sequenceTable = "protocol_sequences"
	prefixTable   = "protocol_prefixes"
)

// SequenceRepositoryInterface is the durable counter behind protocol numbers.
type SequenceRepositoryInterface interface {
	// Next increments and returns the counter of the (year, prefix, groupID) domain.
	// The counter row stays locked until tx ends, which serializes allocators of one
	// domain across processes. It must be called inside a transaction.
	Next(ctx context.Context, tx pgx.Tx, year int, prefix, groupID string) (int64, error)
	// ClaimPrefix records groupID as the owner of prefix unless another group
	// already owns it, and returns the owner. The row stays locked until tx ends.
	ClaimPrefix(ctx context.Context, tx pgx.Tx, prefix, groupID string) (string, error)
}

type sequenceRepository struct {
	storage *pgxpool.Pool
}

func NewSequenceRepository(storage *pgxpool.Pool) SequenceRepositoryInterface {
	return &sequenceRepository{storage: storage}
}

// The counter never falls behind MAX(protocols.sequence), so rows inserted by
// other means (imports, manual fixes) cannot cause a duplicate number.
var nextSequenceQuery = fmt.Sprintf(`
	INSERT INTO %[1]s (year, prefix, group_id, last_value, updated_at)
	VALUES ($1, $2, $3,
		COALESCE((SELECT MAX(sequence) FROM %[2]s WHERE year = $1 AND prefix = $2 AND group_id = $3), 0) + 1,
		NOW())
	ON CONFLICT (year, prefix, group_id) DO UPDATE
	SET last_value = GREATEST(
			%[1]s.last_value,
			COALESCE((SELECT MAX(sequence) FROM %[2]s WHERE year = $1 AND prefix = $2 AND group_id = $3), 0)
		) + 1,
		updated_at = NOW()
	RETURNING last_value`, sequenceTable, protocolTable)

func (r *sequenceRepository) Next(ctx context.Context, tx pgx.Tx, year int, prefix, groupID string) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("sequence allocation requires a transaction")
	}

	var next int64
	if err := tx.QueryRow(ctx, nextSequenceQuery, year, prefix, groupID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to advance protocol sequence: %w", err)
	}
	return next, nil
}

// The no-op update makes RETURNING yield the existing owner and lock its row.
var claimPrefixQuery = fmt.Sprintf(`
	INSERT INTO %[1]s (prefix, group_id, created_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (prefix) DO UPDATE SET prefix = EXCLUDED.prefix
	RETURNING group_id`, prefixTable)

func (r *sequenceRepository) ClaimPrefix(ctx context.Context, tx pgx.Tx, prefix, groupID string) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("prefix claim requires a transaction")
	}

	var owner string
	if err := tx.QueryRow(ctx, claimPrefixQuery, prefix, groupID).Scan(&owner); err != nil {
		return "", fmt.Errorf("failed to claim protocol prefix: %w", err)
	}
	return owner, nil
}
