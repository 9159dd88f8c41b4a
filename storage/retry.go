package storage

import (
	"context"
	"errors"
	"time"
)

// transientError marks a failure that may succeed if the operation is repeated.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// Transient marks err as a connectivity-class failure that WithRetry may
// repeat. Backends use it for dropped connections, transaction conflicts and
// exhausted connection slots.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// WithRetry runs fn up to attempts times while it fails with a transient
// error, doubling delay between attempts. Any other error, or a done ctx,
// ends the loop immediately.
func WithRetry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(ctx.Err(), err)
			case <-time.After(delay):
			}
			delay *= 2
		}

		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}
	}
	return err
}
