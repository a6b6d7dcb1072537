package model

import "time"

// DefaultLoanPeriod is the lending window applied when no override is configured.
const DefaultLoanPeriod = 14 * 24 * time.Hour

type Book struct {
	BookID          int64  `json:"book_id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	PublishedYear   int    `json:"published_year"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// BookInput carries the caller-settable book fields for create and update.
// On create, available copies start equal to total copies. On update, a change
// to total copies shifts available copies by the same delta.
type BookInput struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	PublishedYear int    `json:"published_year"`
	TotalCopies   int    `json:"total_copies"`
}

type Borrower struct {
	BorrowerID int64  `json:"borrower_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

type BorrowerInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Loan struct {
	LoanID     int64      `json:"loan_id"`
	BookID     int64      `json:"book_id"`
	BorrowerID int64      `json:"borrower_id"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

// Open reports whether the loan has not been returned yet.
func (l Loan) Open() bool { return l.ReturnDate == nil }

// OverdueAt reports whether the loan is open and past due at the given time.
func (l Loan) OverdueAt(now time.Time) bool {
	return l.Open() && l.DueDate.Before(now)
}

// DueDateFor computes the due date for a loan issued at loanDate.
func DueDateFor(loanDate time.Time, period time.Duration) time.Time {
	return loanDate.Add(period)
}

// LoanView is a loan joined with its book title and borrower name, as served
// by the open-loan and overdue listings.
type LoanView struct {
	LoanID       int64      `json:"loan_id"`
	BookID       int64      `json:"book_id"`
	BookTitle    string     `json:"book_title"`
	BorrowerID   int64      `json:"borrower_id"`
	BorrowerName string     `json:"borrower_name"`
	LoanDate     time.Time  `json:"loan_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
}

type IssueRequest struct {
	BookID     int64 `json:"book_id"`
	BorrowerID int64 `json:"borrower_id"`
}

type IssueResult struct {
	LoanID  int64     `json:"loan_id"`
	DueDate time.Time `json:"due_date"`
}

type ReturnRequest struct {
	LoanID int64 `json:"loan_id"`
}

type ReturnResult struct {
	BookID     int64 `json:"book_id"`
	BorrowerID int64 `json:"borrower_id"`
}

type Availability struct {
	BookID    int64 `json:"book_id"`
	Available int   `json:"available"`
	Total     int   `json:"total"`
}
