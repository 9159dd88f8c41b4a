package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))

	t.Run("domain errors pass through", func(t *testing.T) {
		for _, err := range []error{
			core.ErrNotFound,
			core.ErrDimensionMismatch,
			core.ErrInvalidStatusTransition,
			context.Canceled,
			context.DeadlineExceeded,
		} {
			wrapped := fmt.Errorf("op: %w", err)
			assert.Same(t, wrapped, mapError(wrapped))
		}
	})

	t.Run("no rows is not found", func(t *testing.T) {
		err := mapError(sql.ErrNoRows)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.False(t, storage.IsTransient(err))
	})

	t.Run("broken connections are transient", func(t *testing.T) {
		for _, cause := range []error{sql.ErrConnDone, driver.ErrBadConn} {
			err := mapError(cause)
			assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
			assert.True(t, storage.IsTransient(err))
		}
	})

	t.Run("unknown errors are permanent store failures", func(t *testing.T) {
		err := mapError(errors.New("boom"))
		assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
		assert.False(t, storage.IsTransient(err))
	})
}

func TestMapPgError(t *testing.T) {
	tests := []struct {
		code      string
		sentinel  error
		transient bool
	}{
		{pgerrcode.ForeignKeyViolation, storage.ErrNotFound, false},
		{pgerrcode.UniqueViolation, core.ErrInvalidDocument, false},
		{pgerrcode.ConnectionFailure, storage.ErrStoreUnavailable, true},
		{pgerrcode.TooManyConnections, storage.ErrStoreUnavailable, true},
		{pgerrcode.AdminShutdown, storage.ErrStoreUnavailable, true},
		{pgerrcode.CannotConnectNow, storage.ErrStoreUnavailable, true},
		{pgerrcode.SerializationFailure, storage.ErrStoreUnavailable, true},
		{pgerrcode.DeadlockDetected, storage.ErrStoreUnavailable, true},
		{pgerrcode.QueryCanceled, storage.ErrStoreUnavailable, false},
		{pgerrcode.SyntaxError, storage.ErrStoreUnavailable, false},
		{pgerrcode.DataException, storage.ErrStoreUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tt.code, Message: "scripted"}
			err := mapError(fmt.Errorf("exec: %w", pgErr))
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.transient, storage.IsTransient(err))
		})
	}
}
