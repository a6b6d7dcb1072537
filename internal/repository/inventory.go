package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"biblio/internal/service"
)

// InventoryLedger is the only component allowed to mutate a book's copy
// counters. Both mutations are conditional updates checked on rows affected,
// so two concurrent reservations of the last copy resolve at the storage
// layer: exactly one succeeds, no in-process lock needed.
type InventoryLedger struct{}

const qReserveCopy = `
	UPDATE books
	   SET available_copies = available_copies - 1
	 WHERE book_id = $1
	   AND available_copies > 0
	RETURNING title, available_copies`

// TryReserve decrements the book's available counter iff a copy is free.
// Returns the book title (for the caller's confirmation view) and the new
// available count. Fails with ErrNotFound or ErrOutOfStock.
func (InventoryLedger) TryReserve(ctx context.Context, q Querier, bookID int64) (string, int, error) {
	var (
		title        string
		newAvailable int
	)
	err := q.QueryRow(ctx, qReserveCopy, bookID).Scan(&title, &newAvailable)
	if err == nil {
		return title, newAvailable, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", 0, err
	}

	// Zero rows: either the book does not exist or no copy is free.
	exists, err := bookExists(ctx, q, bookID)
	if err != nil {
		return "", 0, err
	}
	if !exists {
		return "", 0, fmt.Errorf("book %d: %w", bookID, service.ErrNotFound)
	}
	return "", 0, fmt.Errorf("book %d: %w", bookID, service.ErrOutOfStock)
}

const qReleaseCopy = `
	UPDATE books
	   SET available_copies = available_copies + 1
	 WHERE book_id = $1
	   AND available_copies < total_copies
	RETURNING available_copies`

// Release increments the book's available counter when a copy comes back.
// An increment that would push available past total means a copy is being
// released without a matching open loan; that is a defect, reported as
// ErrConsistencyViolation and never clamped.
func (InventoryLedger) Release(ctx context.Context, q Querier, bookID int64) (int, error) {
	var newAvailable int
	err := q.QueryRow(ctx, qReleaseCopy, bookID).Scan(&newAvailable)
	if err == nil {
		return newAvailable, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	exists, err := bookExists(ctx, q, bookID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("book %d: %w", bookID, service.ErrNotFound)
	}

	slog.Error("release would exceed total copies", "book_id", bookID)
	return 0, fmt.Errorf("book %d: release past total: %w", bookID, service.ErrConsistencyViolation)
}

// Availability reads the counters without locking.
func (InventoryLedger) Availability(ctx context.Context, q Querier, bookID int64) (int, int, error) {
	var available, total int
	err := q.QueryRow(ctx,
		`SELECT available_copies, total_copies FROM books WHERE book_id = $1`,
		bookID,
	).Scan(&available, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, fmt.Errorf("book %d: %w", bookID, service.ErrNotFound)
	}
	if err != nil {
		return 0, 0, err
	}
	return available, total, nil
}

func bookExists(ctx context.Context, q Querier, bookID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE book_id = $1)`, bookID,
	).Scan(&exists)
	return exists, err
}
