package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoanOverdueAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("open loan past due is overdue", func(t *testing.T) {
		loan := Loan{DueDate: now.Add(-24 * time.Hour)}
		assert.True(t, loan.OverdueAt(now))
	})

	t.Run("open loan before due is not overdue", func(t *testing.T) {
		loan := Loan{DueDate: now.Add(24 * time.Hour)}
		assert.False(t, loan.OverdueAt(now))
	})

	t.Run("due exactly now is not overdue", func(t *testing.T) {
		loan := Loan{DueDate: now}
		assert.False(t, loan.OverdueAt(now))
	})

	t.Run("returned loan is never overdue", func(t *testing.T) {
		returned := now.Add(-time.Hour)
		loan := Loan{DueDate: now.Add(-24 * time.Hour), ReturnDate: &returned}
		assert.False(t, loan.OverdueAt(now))
	})
}

func TestDueDateFor(t *testing.T) {
	loanDate := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	due := DueDateFor(loanDate, DefaultLoanPeriod)
	assert.Equal(t, time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC), due)

	due = DueDateFor(loanDate, 7*24*time.Hour)
	assert.Equal(t, time.Date(2026, 3, 8, 9, 30, 0, 0, time.UTC), due)
}

func TestLoanOpen(t *testing.T) {
	assert.True(t, Loan{}.Open())

	returned := time.Now()
	assert.False(t, Loan{ReturnDate: &returned}.Open())
}
