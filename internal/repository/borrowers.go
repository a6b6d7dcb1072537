package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"biblio/internal/model"
	"biblio/internal/service"
)

// CatalogRepo implements service.CatalogService: book and borrower
// administration around the lending ledger.
type CatalogRepo struct {
	store *Store
	cache *AvailabilityCache
}

func NewCatalogRepo(store *Store, cache *AvailabilityCache) *CatalogRepo {
	return &CatalogRepo{store: store, cache: cache}
}

func (r *CatalogRepo) CreateBorrower(ctx context.Context, in model.BorrowerInput) (*model.Borrower, error) {
	borrower := &model.Borrower{Name: in.Name, Email: in.Email, Phone: in.Phone}
	err := r.store.pool.QueryRow(ctx, `
		INSERT INTO borrowers (name, email, phone)
		VALUES ($1, $2, $3)
		RETURNING borrower_id`,
		in.Name, in.Email, in.Phone,
	).Scan(&borrower.BorrowerID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return borrower, nil
}

func (r *CatalogRepo) ListBorrowers(ctx context.Context) ([]model.Borrower, error) {
	rows, err := r.store.pool.Query(ctx, `
		SELECT borrower_id, name, email, phone
		  FROM borrowers
		 ORDER BY borrower_id`)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()

	borrowers := make([]model.Borrower, 0)
	for rows.Next() {
		var b model.Borrower
		if err := rows.Scan(&b.BorrowerID, &b.Name, &b.Email, &b.Phone); err != nil {
			return nil, mapStorageErr(err)
		}
		borrowers = append(borrowers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr(err)
	}
	return borrowers, nil
}

func (r *CatalogRepo) GetBorrower(ctx context.Context, borrowerID int64) (*model.Borrower, error) {
	var b model.Borrower
	err := r.store.pool.QueryRow(ctx, `
		SELECT borrower_id, name, email, phone
		  FROM borrowers
		 WHERE borrower_id = $1`, borrowerID,
	).Scan(&b.BorrowerID, &b.Name, &b.Email, &b.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("borrower %d: %w", borrowerID, service.ErrNotFound)
	}
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &b, nil
}

func (r *CatalogRepo) UpdateBorrower(ctx context.Context, borrowerID int64, in model.BorrowerInput) error {
	tag, err := r.store.pool.Exec(ctx, `
		UPDATE borrowers
		   SET name = $2, email = $3, phone = $4
		 WHERE borrower_id = $1`,
		borrowerID, in.Name, in.Email, in.Phone)
	if err != nil {
		return mapStorageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("borrower %d: %w", borrowerID, service.ErrNotFound)
	}
	return nil
}

// DeleteBorrower removes a borrower with no loan history. Open loans pin the
// row, and so do closed ones: loans are never deleted with their borrower.
func (r *CatalogRepo) DeleteBorrower(ctx context.Context, borrowerID int64) error {
	return r.store.WithinTx(ctx, func(tx pgx.Tx) error {
		var hasLoans bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM loans WHERE borrower_id = $1)`, borrowerID,
		).Scan(&hasLoans)
		if err != nil {
			return err
		}
		if hasLoans {
			return fmt.Errorf("borrower %d: %w", borrowerID, service.ErrHasLoans)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM borrowers WHERE borrower_id = $1`, borrowerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("borrower %d: %w", borrowerID, service.ErrNotFound)
		}
		return nil
	})
}

// requireBorrower is the existence check IssueLoan runs before touching the
// inventory.
func requireBorrower(ctx context.Context, q Querier, borrowerID int64) error {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM borrowers WHERE borrower_id = $1)`, borrowerID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("borrower %d: %w", borrowerID, service.ErrNotFound)
	}
	return nil
}
