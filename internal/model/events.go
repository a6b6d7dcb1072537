package model

import "time"

// NATS subjects for loan lifecycle events. The audit worker subscribes to
// TopicLoanEvents and records every event it sees.
const (
	TopicLoanIssued   = "loans.events.issued"
	TopicLoanReturned = "loans.events.returned"
	TopicLoanEvents   = "loans.events.*"
)

const (
	EventKindIssued   = "issued"
	EventKindReturned = "returned"
)

// LoanEvent is published after a lending transaction commits. EventID is the
// idempotency key for the audit trail; replays are deduplicated on it.
type LoanEvent struct {
	EventID    string    `json:"event_id"`
	Kind       string    `json:"kind"`
	LoanID     int64     `json:"loan_id"`
	BookID     int64     `json:"book_id"`
	BorrowerID int64     `json:"borrower_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
