package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func unavailable(msg string) error {
	return Transient(fmt.Errorf("%w: %s", ErrStoreUnavailable, msg))
}

func TestTransient(t *testing.T) {
	assert.Nil(t, Transient(nil))

	err := unavailable("connection reset")
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, "store unavailable: connection reset", err.Error())

	wrapped := fmt.Errorf("get document: %w", err)
	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsTransient(ErrStoreUnavailable))
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("success first try", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, 3, time.Millisecond, func() error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return unavailable("connection reset")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, 2, time.Millisecond, func() error {
			calls++
			return unavailable("down")
		})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry permanent store failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, 5, time.Millisecond, func() error {
			calls++
			return fmt.Errorf("%w: syntax error", ErrStoreUnavailable)
		})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Equal(t, 1, calls)
	})

	t.Run("does not retry domain errors", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, 5, time.Millisecond, func() error {
			calls++
			return ErrNotFound
		})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is done", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		err := WithRetry(cctx, 5, time.Hour, func() error {
			cancel()
			return unavailable("down")
		})
		assert.True(t, errors.Is(err, context.Canceled))
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}
