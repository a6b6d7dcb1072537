package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblio/internal/model"
	"biblio/internal/service"
)

// These tests exercise the real conditional-update paths and need a Postgres
// instance. Point BIBLIO_TEST_DATABASE_DSN at a scratch database to run them.

func newTestRepos(t *testing.T) (*LendingRepo, *CatalogRepo, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("BIBLIO_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("BIBLIO_TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, dsn, "up"))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewStore(pool)
	return NewLendingRepo(store, nil, nil, 0), NewCatalogRepo(store, nil), pool
}

func createBook(t *testing.T, catalog *CatalogRepo, copies int) *model.Book {
	t.Helper()
	book, err := catalog.CreateBook(context.Background(), model.BookInput{
		Title:         fmt.Sprintf("Test Title %d", time.Now().UnixNano()),
		Author:        "Test Author",
		ISBN:          fmt.Sprintf("isbn-%d", time.Now().UnixNano()),
		PublishedYear: 2020,
		TotalCopies:   copies,
	})
	require.NoError(t, err)
	return book
}

func createBorrower(t *testing.T, catalog *CatalogRepo) *model.Borrower {
	t.Helper()
	borrower, err := catalog.CreateBorrower(context.Background(), model.BorrowerInput{
		Name:  "Test Borrower",
		Email: fmt.Sprintf("borrower-%d@example.com", time.Now().UnixNano()),
		Phone: "555-0100",
	})
	require.NoError(t, err)
	return borrower
}

func availability(t *testing.T, lending *LendingRepo, bookID int64) *model.Availability {
	t.Helper()
	av, err := lending.Availability(context.Background(), bookID)
	require.NoError(t, err)
	return av
}

func TestIssueReturnRoundTrip(t *testing.T) {
	lending, catalog, _ := newTestRepos(t)
	ctx := context.Background()

	book := createBook(t, catalog, 1)
	borrower := createBorrower(t, catalog)

	before := time.Now().UTC()
	issued, err := lending.IssueLoan(ctx, book.BookID, borrower.BorrowerID)
	require.NoError(t, err)
	assert.NotZero(t, issued.LoanID)

	// Due date is loan date plus the default 14-day period.
	wantDue := before.Add(model.DefaultLoanPeriod)
	assert.WithinDuration(t, wantDue, issued.DueDate, time.Minute)

	av := availability(t, lending, book.BookID)
	assert.Equal(t, 0, av.Available)
	assert.Equal(t, 1, av.Total)

	// Second issue on the same single-copy book is rejected.
	_, err = lending.IssueLoan(ctx, book.BookID, borrower.BorrowerID)
	assert.ErrorIs(t, err, service.ErrOutOfStock)

	returned, err := lending.ReturnLoan(ctx, issued.LoanID)
	require.NoError(t, err)
	assert.Equal(t, book.BookID, returned.BookID)
	assert.Equal(t, borrower.BorrowerID, returned.BorrowerID)

	av = availability(t, lending, book.BookID)
	assert.Equal(t, 1, av.Available)
	assert.Equal(t, 1, av.Total)

	// Second return of the same loan is the idempotence guard: one error,
	// and the counter moved by exactly one, not two.
	_, err = lending.ReturnLoan(ctx, issued.LoanID)
	assert.ErrorIs(t, err, service.ErrAlreadyReturned)

	av = availability(t, lending, book.BookID)
	assert.Equal(t, 1, av.Available)
}

func TestConcurrentIssue_SingleCopy(t *testing.T) {
	lending, catalog, _ := newTestRepos(t)
	ctx := context.Background()

	book := createBook(t, catalog, 1)
	borrower := createBorrower(t, catalog)

	const callers = 2
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = lending.IssueLoan(ctx, book.BookID, borrower.BorrowerID)
		}(i)
	}
	wg.Wait()

	var successes, outOfStock int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, service.ErrOutOfStock):
			outOfStock++
		}
	}
	assert.Equal(t, 1, successes, "exactly one caller must win the last copy")
	assert.Equal(t, 1, outOfStock)

	av := availability(t, lending, book.BookID)
	assert.Equal(t, 0, av.Available)
}

func TestIssueLoan_UnknownBook(t *testing.T) {
	lending, catalog, _ := newTestRepos(t)
	ctx := context.Background()

	borrower := createBorrower(t, catalog)

	_, err := lending.IssueLoan(ctx, 999999999, borrower.BorrowerID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	// Nothing was written for the borrower.
	loans, err := lending.ListOpenByBorrower(ctx, borrower.BorrowerID)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestIssueLoan_UnknownBorrower(t *testing.T) {
	lending, catalog, _ := newTestRepos(t)
	ctx := context.Background()

	book := createBook(t, catalog, 3)

	_, err := lending.IssueLoan(ctx, book.BookID, 999999999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	// The failed unit of work left the counter untouched.
	av := availability(t, lending, book.BookID)
	assert.Equal(t, 3, av.Available)
}

func TestReturnLoan_UnknownLoan(t *testing.T) {
	lending, _, _ := newTestRepos(t)

	_, err := lending.ReturnLoan(context.Background(), 999999999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestListOverdue(t *testing.T) {
	lending, catalog, pool := newTestRepos(t)
	ctx := context.Background()

	book := createBook(t, catalog, 1)
	borrower := createBorrower(t, catalog)

	issued, err := lending.IssueLoan(ctx, book.BookID, borrower.BorrowerID)
	require.NoError(t, err)

	// Backdate the due date so the loan is overdue right now.
	_, err = pool.Exec(ctx,
		`UPDATE loans SET due_date = now() - interval '1 day' WHERE loan_id = $1`,
		issued.LoanID)
	require.NoError(t, err)

	now := time.Now().UTC()
	overdue, err := lending.ListOverdue(ctx, now)
	require.NoError(t, err)
	assert.True(t, containsLoan(overdue, issued.LoanID), "backdated open loan must be overdue")

	_, err = lending.ReturnLoan(ctx, issued.LoanID)
	require.NoError(t, err)

	// A returned loan never shows up again, no matter the query time.
	overdue, err = lending.ListOverdue(ctx, now.Add(365*24*time.Hour))
	require.NoError(t, err)
	assert.False(t, containsLoan(overdue, issued.LoanID))
}

func TestListOpenByBorrower(t *testing.T) {
	lending, catalog, _ := newTestRepos(t)
	ctx := context.Background()

	book := createBook(t, catalog, 2)
	borrower := createBorrower(t, catalog)

	issued, err := lending.IssueLoan(ctx, book.BookID, borrower.BorrowerID)
	require.NoError(t, err)

	loans, err := lending.ListOpenByBorrower(ctx, borrower.BorrowerID)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, issued.LoanID, loans[0].LoanID)
	assert.Equal(t, book.BookID, loans[0].BookID)

	_, err = lending.ReturnLoan(ctx, issued.LoanID)
	require.NoError(t, err)

	loans, err = lending.ListOpenByBorrower(ctx, borrower.BorrowerID)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestDeleteBorrower_LoanGuard(t *testing.T) {
	lending, catalog, _ := newTestRepos(t)
	ctx := context.Background()

	book := createBook(t, catalog, 1)
	borrower := createBorrower(t, catalog)

	_, err := lending.IssueLoan(ctx, book.BookID, borrower.BorrowerID)
	require.NoError(t, err)

	err = catalog.DeleteBorrower(ctx, borrower.BorrowerID)
	assert.ErrorIs(t, err, service.ErrHasLoans)

	// Still there.
	_, err = catalog.GetBorrower(ctx, borrower.BorrowerID)
	assert.NoError(t, err)
}

func TestUpdateBook_CopyAdjustment(t *testing.T) {
	lending, catalog, _ := newTestRepos(t)
	ctx := context.Background()

	book := createBook(t, catalog, 2)
	borrower := createBorrower(t, catalog)

	_, err := lending.IssueLoan(ctx, book.BookID, borrower.BorrowerID)
	require.NoError(t, err)

	// 2 total, 1 on loan. Shrinking to 1 total leaves 0 available: allowed.
	in := model.BookInput{
		Title:         book.Title,
		Author:        book.Author,
		ISBN:          book.ISBN,
		PublishedYear: book.PublishedYear,
		TotalCopies:   1,
	}
	require.NoError(t, catalog.UpdateBook(ctx, book.BookID, in))

	av := availability(t, lending, book.BookID)
	assert.Equal(t, 0, av.Available)
	assert.Equal(t, 1, av.Total)

	// Shrinking below the on-loan count would drive available negative.
	in.TotalCopies = 0
	err = catalog.UpdateBook(ctx, book.BookID, in)
	assert.ErrorIs(t, err, service.ErrConsistencyViolation)
}

func TestRecordLoanEvent_Idempotent(t *testing.T) {
	lending, _, pool := newTestRepos(t)
	ctx := context.Background()

	event := model.LoanEvent{
		EventID:    "5f6f3f1a-52ef-4b0e-9f67-93c1c3a1f0aa",
		Kind:       model.EventKindIssued,
		LoanID:     1,
		BookID:     1,
		BorrowerID: 1,
		OccurredAt: time.Now().UTC(),
	}

	require.NoError(t, lending.RecordLoanEvent(ctx, event))
	require.NoError(t, lending.RecordLoanEvent(ctx, event))

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM loan_audit WHERE event_id = $1`, event.EventID,
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func containsLoan(views []model.LoanView, loanID int64) bool {
	for _, v := range views {
		if v.LoanID == loanID {
			return true
		}
	}
	return false
}
