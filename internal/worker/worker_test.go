package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblio/internal/model"
)

type mockService struct {
	recorded []model.LoanEvent
	err      error
}

func (m *mockService) IssueLoan(ctx context.Context, bookID, borrowerID int64) (*model.IssueResult, error) {
	return nil, nil
}
func (m *mockService) ReturnLoan(ctx context.Context, loanID int64) (*model.ReturnResult, error) {
	return nil, nil
}
func (m *mockService) ListOpen(ctx context.Context) ([]model.LoanView, error) { return nil, nil }
func (m *mockService) ListOverdue(ctx context.Context, now time.Time) ([]model.LoanView, error) {
	return nil, nil
}
func (m *mockService) ListOpenByBorrower(ctx context.Context, borrowerID int64) ([]model.LoanView, error) {
	return nil, nil
}
func (m *mockService) Availability(ctx context.Context, bookID int64) (*model.Availability, error) {
	return nil, nil
}
func (m *mockService) RecordLoanEvent(ctx context.Context, event model.LoanEvent) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, event)
	return nil
}

func TestHandle_RecordsEvent(t *testing.T) {
	svc := &mockService{}
	w := NewAuditWorker(svc, nil)

	event := model.LoanEvent{
		EventID:    "a9c7e9be-9e4b-4b9e-8d5f-0c4a8f4f2a61",
		Kind:       model.EventKindIssued,
		LoanID:     42,
		BookID:     7,
		BorrowerID: 9,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	w.handle(context.Background(), data)

	require.Len(t, svc.recorded, 1)
	assert.Equal(t, event.EventID, svc.recorded[0].EventID)
	assert.Equal(t, int64(42), svc.recorded[0].LoanID)
}

func TestHandle_MalformedPayload(t *testing.T) {
	svc := &mockService{}
	w := NewAuditWorker(svc, nil)

	w.handle(context.Background(), []byte("not json"))

	assert.Empty(t, svc.recorded)
}

func TestHandle_RecordFailureDoesNotPanic(t *testing.T) {
	svc := &mockService{err: errors.New("db down")}
	w := NewAuditWorker(svc, nil)

	data, err := json.Marshal(model.LoanEvent{EventID: "x"})
	require.NoError(t, err)

	w.handle(context.Background(), data)

	assert.Empty(t, svc.recorded)
}
