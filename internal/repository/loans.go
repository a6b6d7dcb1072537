package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"biblio/internal/model"
	"biblio/internal/service"
)

// LoanRegistry owns loan records and their open/closed state. A loan is
// created open, closed exactly once, and never deleted.
type LoanRegistry struct{}

// Create inserts a new open loan and returns its id.
func (LoanRegistry) Create(ctx context.Context, q Querier, bookID, borrowerID int64, loanDate, dueDate time.Time) (int64, error) {
	var loanID int64
	err := q.QueryRow(ctx, `
		INSERT INTO loans (book_id, borrower_id, loan_date, due_date)
		VALUES ($1, $2, $3, $4)
		RETURNING loan_id`,
		bookID, borrowerID, loanDate, dueDate,
	).Scan(&loanID)
	if err != nil {
		return 0, fmt.Errorf("insert loan: %w", err)
	}
	return loanID, nil
}

const qCloseLoan = `
	UPDATE loans
	   SET return_date = $2
	 WHERE loan_id = $1
	   AND return_date IS NULL
	RETURNING book_id, borrower_id`

// Close marks the loan returned. The return_date IS NULL guard is the
// idempotence check: a second close of the same loan matches zero rows and
// reports ErrAlreadyReturned, so its copy can never be released twice.
func (LoanRegistry) Close(ctx context.Context, q Querier, loanID int64, returnDate time.Time) (int64, int64, error) {
	var bookID, borrowerID int64
	err := q.QueryRow(ctx, qCloseLoan, loanID, returnDate).Scan(&bookID, &borrowerID)
	if err == nil {
		return bookID, borrowerID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, err
	}

	var returned *time.Time
	err = q.QueryRow(ctx, `SELECT return_date FROM loans WHERE loan_id = $1`, loanID).Scan(&returned)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, fmt.Errorf("loan %d: %w", loanID, service.ErrNotFound)
	}
	if err != nil {
		return 0, 0, err
	}
	return 0, 0, fmt.Errorf("loan %d: %w", loanID, service.ErrAlreadyReturned)
}

const qLoanViews = `
	SELECT l.loan_id, l.book_id, b.title, l.borrower_id, r.name,
	       l.loan_date, l.due_date, l.return_date
	  FROM loans l
	  JOIN books b ON b.book_id = l.book_id
	  JOIN borrowers r ON r.borrower_id = l.borrower_id`

// ListOpen returns every loan without a return date.
func (LoanRegistry) ListOpen(ctx context.Context, q Querier) ([]model.LoanView, error) {
	rows, err := q.Query(ctx, qLoanViews+`
		 WHERE l.return_date IS NULL
		 ORDER BY l.due_date, l.loan_id`)
	if err != nil {
		return nil, err
	}
	return collectLoanViews(rows)
}

// ListOverdue returns open loans whose due date has passed at now. This is a
// derived view recomputed on every call, never stored.
func (LoanRegistry) ListOverdue(ctx context.Context, q Querier, now time.Time) ([]model.LoanView, error) {
	rows, err := q.Query(ctx, qLoanViews+`
		 WHERE l.return_date IS NULL
		   AND l.due_date < $1
		 ORDER BY l.due_date, l.loan_id`, now)
	if err != nil {
		return nil, err
	}
	return collectLoanViews(rows)
}

// ListOpenByBorrower returns the borrower's open loans. This replaces the
// relational navigation the desktop client leaned on with an explicit query.
func (LoanRegistry) ListOpenByBorrower(ctx context.Context, q Querier, borrowerID int64) ([]model.LoanView, error) {
	rows, err := q.Query(ctx, qLoanViews+`
		 WHERE l.return_date IS NULL
		   AND l.borrower_id = $1
		 ORDER BY l.due_date, l.loan_id`, borrowerID)
	if err != nil {
		return nil, err
	}
	return collectLoanViews(rows)
}

func collectLoanViews(rows pgx.Rows) ([]model.LoanView, error) {
	defer rows.Close()

	views := make([]model.LoanView, 0)
	for rows.Next() {
		var v model.LoanView
		if err := rows.Scan(
			&v.LoanID, &v.BookID, &v.BookTitle, &v.BorrowerID, &v.BorrowerName,
			&v.LoanDate, &v.DueDate, &v.ReturnDate,
		); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
