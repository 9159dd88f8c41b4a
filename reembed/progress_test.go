package reembed

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestProgressTracker_Basic(t *testing.T) {
	logger, buf := newBufferLogger()
	tracker := NewProgressTracker(logger, 100, 10)

	tracker.Start()
	assert.True(t, tracker.started, "should be started")

	tracker.Increment(25, 0)
	tracker.Increment(25, 1)
	tracker.Increment(50, 2)

	assert.Greater(t, tracker.Elapsed(), time.Duration(0), "elapsed time should be positive")
	assert.Equal(t, 100, tracker.Processed())

	output := buf.String()
	assert.Equal(t, 3, strings.Count(output, "reembed progress"))
	assert.Contains(t, output, "processed=100 total=100 failed=3")
	assert.Contains(t, output, "percent=100")
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	logger, buf := newBufferLogger()
	tracker := NewProgressTracker(logger, 100, 10)

	tracker.Start()
	for i := 0; i < 9; i++ {
		tracker.Increment(1, 0)
	}
	assert.Empty(t, buf.String(), "should not report before the interval")

	tracker.Increment(1, 0)
	assert.Contains(t, buf.String(), "processed=10 ")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	logger, _ := newBufferLogger()
	tracker := NewProgressTracker(logger, 10, 5)

	tracker.Start()
	tracker.Increment(25, 0)
	assert.Equal(t, 10, tracker.Processed())
}

func TestProgressTracker_Finish(t *testing.T) {
	logger, buf := newBufferLogger()
	tracker := NewProgressTracker(logger, 100, 1000)

	tracker.Start()
	tracker.Increment(100, 0)
	tracker.Finish()

	assert.Contains(t, buf.String(), "reembed finished")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	logger, buf := newBufferLogger()
	tracker := NewProgressTracker(logger, 100, 1)

	tracker.Increment(10, 0)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
	assert.Equal(t, time.Duration(0), tracker.ETA())
}

func TestProgressTracker_ETA(t *testing.T) {
	logger, _ := newBufferLogger()
	tracker := NewProgressTracker(logger, 4, 100)

	tracker.Start()
	assert.Equal(t, time.Duration(0), tracker.ETA(), "no estimate before progress")

	time.Sleep(10 * time.Millisecond)
	tracker.Increment(2, 0)
	assert.Greater(t, tracker.ETA(), time.Duration(0))

	tracker.Increment(2, 0)
	assert.Equal(t, time.Duration(0), tracker.ETA(), "no estimate once complete")
}
