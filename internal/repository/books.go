package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"biblio/internal/model"
	"biblio/internal/service"
)

// CreateBook inserts a new title. Available copies start equal to total.
func (r *CatalogRepo) CreateBook(ctx context.Context, in model.BookInput) (*model.Book, error) {
	if in.TotalCopies < 0 {
		return nil, fmt.Errorf("total copies must not be negative: %w", service.ErrConsistencyViolation)
	}

	book := &model.Book{
		Title:           in.Title,
		Author:          in.Author,
		ISBN:            in.ISBN,
		PublishedYear:   in.PublishedYear,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
	}
	err := r.store.pool.QueryRow(ctx, `
		INSERT INTO books (title, author, isbn, published_year, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING book_id`,
		in.Title, in.Author, in.ISBN, in.PublishedYear, in.TotalCopies,
	).Scan(&book.BookID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return book, nil
}

func (r *CatalogRepo) ListBooks(ctx context.Context) ([]model.Book, error) {
	rows, err := r.store.pool.Query(ctx, `
		SELECT book_id, title, author, isbn, published_year, total_copies, available_copies
		  FROM books
		 ORDER BY book_id`)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()

	books := make([]model.Book, 0)
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.BookID, &b.Title, &b.Author, &b.ISBN,
			&b.PublishedYear, &b.TotalCopies, &b.AvailableCopies); err != nil {
			return nil, mapStorageErr(err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr(err)
	}
	return books, nil
}

func (r *CatalogRepo) GetBook(ctx context.Context, bookID int64) (*model.Book, error) {
	var b model.Book
	err := r.store.pool.QueryRow(ctx, `
		SELECT book_id, title, author, isbn, published_year, total_copies, available_copies
		  FROM books
		 WHERE book_id = $1`, bookID,
	).Scan(&b.BookID, &b.Title, &b.Author, &b.ISBN,
		&b.PublishedYear, &b.TotalCopies, &b.AvailableCopies)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", bookID, service.ErrNotFound)
	}
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &b, nil
}

const qUpdateBook = `
	UPDATE books
	   SET title = $2,
	       author = $3,
	       isbn = $4,
	       published_year = $5,
	       available_copies = available_copies + ($6 - total_copies),
	       total_copies = $6
	 WHERE book_id = $1
	   AND available_copies + ($6 - total_copies) >= 0`

// UpdateBook rewrites the descriptive fields and applies any change in total
// copies to the available counter by the same delta, so open loans stay
// accounted for. A delta that would drive available below zero (more copies
// removed than are on the shelf) is refused as a consistency violation.
func (r *CatalogRepo) UpdateBook(ctx context.Context, bookID int64, in model.BookInput) error {
	return r.store.WithinTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, qUpdateBook,
			bookID, in.Title, in.Author, in.ISBN, in.PublishedYear, in.TotalCopies)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			r.cache.Invalidate(ctx, bookID)
			return nil
		}

		exists, err := bookExists(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("book %d: %w", bookID, service.ErrNotFound)
		}
		slog.Error("total-copies adjustment would drop available below zero",
			"book_id", bookID, "new_total", in.TotalCopies)
		return fmt.Errorf("book %d: copy adjustment: %w", bookID, service.ErrConsistencyViolation)
	})
}

// DeleteBook removes a title that has never been lent. Loans are append-only,
// so any loan history pins the book row.
func (r *CatalogRepo) DeleteBook(ctx context.Context, bookID int64) error {
	return r.store.WithinTx(ctx, func(tx pgx.Tx) error {
		var hasLoans bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM loans WHERE book_id = $1)`, bookID,
		).Scan(&hasLoans)
		if err != nil {
			return err
		}
		if hasLoans {
			return fmt.Errorf("book %d: %w", bookID, service.ErrHasLoans)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM books WHERE book_id = $1`, bookID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("book %d: %w", bookID, service.ErrNotFound)
		}
		r.cache.Invalidate(ctx, bookID)
		return nil
	})
}
