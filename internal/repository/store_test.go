package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"biblio/internal/service"
)

func TestMapStorageErr(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, mapStorageErr(nil))
	})

	t.Run("business errors pass through untouched", func(t *testing.T) {
		in := fmt.Errorf("book 7: %w", service.ErrOutOfStock)
		out := mapStorageErr(in)
		assert.ErrorIs(t, out, service.ErrOutOfStock)
		assert.NotErrorIs(t, out, service.ErrStorageUnavailable)
	})

	t.Run("check violation becomes consistency violation", func(t *testing.T) {
		out := mapStorageErr(&pgconn.PgError{Code: "23514", Message: "books_check"})
		assert.ErrorIs(t, out, service.ErrConsistencyViolation)
	})

	t.Run("fk violation becomes not found", func(t *testing.T) {
		out := mapStorageErr(&pgconn.PgError{Code: "23503"})
		assert.ErrorIs(t, out, service.ErrNotFound)
	})

	t.Run("anything else is storage unavailable", func(t *testing.T) {
		out := mapStorageErr(errors.New("connection refused"))
		assert.ErrorIs(t, out, service.ErrStorageUnavailable)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, isRetryable(&pgconn.PgError{Code: "23514"}))
	assert.False(t, isRetryable(errors.New("plain")))
	assert.False(t, isRetryable(nil))
}
