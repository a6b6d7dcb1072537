package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"biblio/internal/service"
)

// Querier is the subset of pgx used by the ledger queries. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same query code runs inside a unit of work or
// as a plain non-locking read.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store wraps the connection pool and owns the unit-of-work boundary.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const (
	txMaxRetries   = 2
	txRetryBackoff = 10 * time.Millisecond
)

// WithinTx runs fn inside a single transaction: every mutation commits or
// rolls back together. Serialization and deadlock failures are retried with
// backoff; once the budget is exhausted the caller sees ErrStorageUnavailable.
func (s *Store) WithinTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	backoff := retry.WithMaxRetries(txMaxRetries, retry.NewExponential(txRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := pgx.BeginFunc(ctx, s.pool, fn)
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	return mapStorageErr(err)
}

// isRetryable matches transaction conflicts worth another attempt:
// serialization_failure (40001) and deadlock_detected (40P01).
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// mapStorageErr translates driver failures into the service error taxonomy.
// Business errors produced inside the unit of work pass through untouched.
func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		service.ErrNotFound,
		service.ErrOutOfStock,
		service.ErrAlreadyReturned,
		service.ErrHasLoans,
		service.ErrConsistencyViolation,
		service.ErrStorageUnavailable,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514": // check_violation on the copy counters
			return fmt.Errorf("%w: %s", service.ErrConsistencyViolation, pgErr.Message)
		case "23503": // foreign_key_violation: referenced row vanished mid-flight
			return fmt.Errorf("%w: %s", service.ErrNotFound, pgErr.Message)
		}
	}

	return fmt.Errorf("%w: %v", service.ErrStorageUnavailable, err)
}
