package reembed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	base := 10 * time.Millisecond
	assert.Equal(t, 10*time.Millisecond, backoff(base, 1))
	assert.Equal(t, 20*time.Millisecond, backoff(base, 2))
	assert.Equal(t, 40*time.Millisecond, backoff(base, 3))
	assert.Equal(t, time.Duration(0), backoff(0, 5))
}

func TestSleep(t *testing.T) {
	t.Run("waits", func(t *testing.T) {
		start := time.Now()
		assert.NoError(t, sleep(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("zero delay", func(t *testing.T) {
		assert.NoError(t, sleep(context.Background(), 0))
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		assert.ErrorIs(t, sleep(ctx, time.Minute), context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})
}
