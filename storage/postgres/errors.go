package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
)

// mapError translates driver errors into the storage error taxonomy.
// Domain errors and context errors pass through unchanged.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrDimensionMismatch),
		errors.Is(err, core.ErrStoreUnavailable),
		errors.Is(err, core.ErrInvalidDocument),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrInvalidStatusTransition),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, driver.ErrBadConn):
		return storage.Transient(fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.SafeToRetry(err) {
		return storage.Transient(fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err))
	}

	return fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err)
}

func mapPgError(pgErr *pgconn.PgError, err error) error {
	code := pgErr.Code
	switch {
	case code == pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s", storage.ErrNotFound, pgErr.Detail)
	case code == pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", core.ErrInvalidDocument, pgErr.Message)
	case pgerrcode.IsConnectionException(code),
		pgerrcode.IsInsufficientResources(code),
		code == pgerrcode.AdminShutdown,
		code == pgerrcode.CrashShutdown,
		code == pgerrcode.CannotConnectNow,
		code == pgerrcode.SerializationFailure,
		code == pgerrcode.DeadlockDetected:
		return storage.Transient(fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err))
	}
	// statement timeouts, syntax and data errors
	return fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err)
}
