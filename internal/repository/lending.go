package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"biblio/internal/model"
)

// LendingRepo implements service.LendingService on top of the transactional
// store. Each mutating operation is one unit of work: the copy counter and
// the loan record change together or not at all.
type LendingRepo struct {
	store      *Store
	cache      *AvailabilityCache
	bus        MessageBus
	inventory  InventoryLedger
	loans      LoanRegistry
	loanPeriod time.Duration
	now        func() time.Time
}

func NewLendingRepo(store *Store, cache *AvailabilityCache, bus MessageBus, loanPeriod time.Duration) *LendingRepo {
	if loanPeriod <= 0 {
		loanPeriod = model.DefaultLoanPeriod
	}
	return &LendingRepo{
		store:      store,
		cache:      cache,
		bus:        bus,
		loanPeriod: loanPeriod,
		now:        time.Now,
	}
}

// IssueLoan reserves a copy and creates the open loan in one transaction.
// The due date is computed here and nowhere else.
func (r *LendingRepo) IssueLoan(ctx context.Context, bookID, borrowerID int64) (*model.IssueResult, error) {
	loanDate := r.now().UTC()
	dueDate := model.DueDateFor(loanDate, r.loanPeriod)

	var loanID int64
	err := r.store.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := requireBorrower(ctx, tx, borrowerID); err != nil {
			return err
		}
		if _, _, err := r.inventory.TryReserve(ctx, tx, bookID); err != nil {
			return err
		}
		id, err := r.loans.Create(ctx, tx, bookID, borrowerID, loanDate, dueDate)
		if err != nil {
			return err
		}
		loanID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.Invalidate(ctx, bookID)
	r.publish(model.TopicLoanIssued, model.LoanEvent{
		EventID:    uuid.NewString(),
		Kind:       model.EventKindIssued,
		LoanID:     loanID,
		BookID:     bookID,
		BorrowerID: borrowerID,
		OccurredAt: loanDate,
	})

	return &model.IssueResult{LoanID: loanID, DueDate: dueDate}, nil
}

// ReturnLoan closes the loan and releases its copy in one transaction.
// Closing fails on unknown or already-returned loans before any counter moves.
func (r *LendingRepo) ReturnLoan(ctx context.Context, loanID int64) (*model.ReturnResult, error) {
	returnDate := r.now().UTC()

	var bookID, borrowerID int64
	err := r.store.WithinTx(ctx, func(tx pgx.Tx) error {
		var err error
		bookID, borrowerID, err = r.loans.Close(ctx, tx, loanID, returnDate)
		if err != nil {
			return err
		}
		_, err = r.inventory.Release(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.cache.Invalidate(ctx, bookID)
	r.publish(model.TopicLoanReturned, model.LoanEvent{
		EventID:    uuid.NewString(),
		Kind:       model.EventKindReturned,
		LoanID:     loanID,
		BookID:     bookID,
		BorrowerID: borrowerID,
		OccurredAt: returnDate,
	})

	return &model.ReturnResult{BookID: bookID, BorrowerID: borrowerID}, nil
}

func (r *LendingRepo) ListOpen(ctx context.Context) ([]model.LoanView, error) {
	views, err := r.loans.ListOpen(ctx, r.store.pool)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return views, nil
}

func (r *LendingRepo) ListOverdue(ctx context.Context, now time.Time) ([]model.LoanView, error) {
	views, err := r.loans.ListOverdue(ctx, r.store.pool, now)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return views, nil
}

func (r *LendingRepo) ListOpenByBorrower(ctx context.Context, borrowerID int64) ([]model.LoanView, error) {
	if err := requireBorrower(ctx, r.store.pool, borrowerID); err != nil {
		return nil, mapStorageErr(err)
	}
	views, err := r.loans.ListOpenByBorrower(ctx, r.store.pool, borrowerID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return views, nil
}

// Availability serves the counters from the cache, warming it from the store
// on a miss. Mutations never consult the cache; a stale read here is the
// accepted non-strict-read trade-off.
func (r *LendingRepo) Availability(ctx context.Context, bookID int64) (*model.Availability, error) {
	if av, ok := r.cache.Get(ctx, bookID); ok {
		return av, nil
	}

	available, total, err := r.inventory.Availability(ctx, r.store.pool, bookID)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	av := &model.Availability{BookID: bookID, Available: available, Total: total}
	r.cache.Set(ctx, av)
	return av, nil
}

// RecordLoanEvent appends the event to the audit trail. The event id is the
// idempotency key, so redelivered bus messages are no-ops.
func (r *LendingRepo) RecordLoanEvent(ctx context.Context, event model.LoanEvent) error {
	_, err := r.store.pool.Exec(ctx, `
		INSERT INTO loan_audit (event_id, kind, loan_id, book_id, borrower_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.Kind, event.LoanID, event.BookID, event.BorrowerID, event.OccurredAt,
	)
	return mapStorageErr(err)
}

// publish is post-commit and best-effort: a lost event loses audit history,
// never ledger consistency.
func (r *LendingRepo) publish(topic string, event model.LoanEvent) {
	if r.bus == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("lending: failed to marshal loan event", "error", err, "loan_id", event.LoanID)
		return
	}
	if err := r.bus.Publish(topic, data); err != nil {
		slog.Error("lending: failed to publish loan event",
			"topic", topic,
			"loan_id", event.LoanID,
			"error", err,
		)
	}
}
