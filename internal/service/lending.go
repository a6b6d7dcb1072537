package service

import (
	"context"
	"time"

	"biblio/internal/model"
)

// LendingService defines the loan ledger operations. All transport layers
// (HTTP, NATS) and the audit worker depend on this interface, not on the
// concrete repository.
type LendingService interface {
	// IssueLoan reserves a copy and creates an open loan in one unit of work.
	IssueLoan(ctx context.Context, bookID, borrowerID int64) (*model.IssueResult, error)

	// ReturnLoan closes the loan and releases its copy in one unit of work.
	ReturnLoan(ctx context.Context, loanID int64) (*model.ReturnResult, error)

	// ListOpen returns all loans without a return date.
	ListOpen(ctx context.Context) ([]model.LoanView, error)

	// ListOverdue returns open loans whose due date has passed at now.
	// Recomputed on every call; nothing is stored.
	ListOverdue(ctx context.Context, now time.Time) ([]model.LoanView, error)

	// ListOpenByBorrower returns the borrower's open loans.
	ListOpenByBorrower(ctx context.Context, borrowerID int64) ([]model.LoanView, error)

	// Availability returns the available/total counters for one book.
	Availability(ctx context.Context, bookID int64) (*model.Availability, error)

	// RecordLoanEvent appends a loan event to the audit trail, idempotently.
	RecordLoanEvent(ctx context.Context, event model.LoanEvent) error
}

// CatalogService covers book and borrower administration.
type CatalogService interface {
	CreateBook(ctx context.Context, in model.BookInput) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	GetBook(ctx context.Context, bookID int64) (*model.Book, error)
	UpdateBook(ctx context.Context, bookID int64, in model.BookInput) error
	DeleteBook(ctx context.Context, bookID int64) error

	CreateBorrower(ctx context.Context, in model.BorrowerInput) (*model.Borrower, error)
	ListBorrowers(ctx context.Context) ([]model.Borrower, error)
	GetBorrower(ctx context.Context, borrowerID int64) (*model.Borrower, error)
	UpdateBorrower(ctx context.Context, borrowerID int64, in model.BorrowerInput) error
	DeleteBorrower(ctx context.Context, borrowerID int64) error
}
