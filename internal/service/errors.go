package service

import "errors"

// Failure kinds returned by the lending and catalog services. Expected
// business outcomes are returned as wrapped sentinels and matched with
// errors.Is; transports map them to their own representation.
var (
	// ErrNotFound: a referenced book, borrower or loan does not exist.
	ErrNotFound = errors.New("not found")

	// ErrOutOfStock: no available copies at reservation time.
	ErrOutOfStock = errors.New("no available copies")

	// ErrAlreadyReturned: the loan is already closed.
	ErrAlreadyReturned = errors.New("loan already returned")

	// ErrHasLoans: deletion refused because loan records reference the row.
	// Loans are append-only and never deleted with their book or borrower.
	ErrHasLoans = errors.New("existing loans prevent deletion")

	// ErrConsistencyViolation: an update would break 0 <= available <= total.
	// Never expected under correct operation; the unit of work is aborted.
	ErrConsistencyViolation = errors.New("inventory consistency violation")

	// ErrStorageUnavailable: the store could not commit (connection loss,
	// retry budget exhausted). Transient; the caller owns retry policy.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
