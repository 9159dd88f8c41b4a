package reembed

import (
	"log/slog"
	"sync"
	"time"
)

// ProgressTracker tracks and reports progress of a re-embedding run.
type ProgressTracker struct {
	logger         *slog.Logger
	total          int
	current        int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// total: total number of documents to process
// reportInterval: report progress every N documents
func NewProgressTracker(logger *slog.Logger, total, reportInterval int) *ProgressTracker {
	if logger == nil {
		logger = slog.Default()
	}
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		logger:         logger,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.failed = 0
	p.lastReported = 0
}

// Increment records delta processed documents, failed of which failed.
func (p *ProgressTracker) Increment(delta, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = min(p.current+delta, p.total)
	p.failed += failed

	// Report if we've crossed a report interval
	if p.current-p.lastReported >= p.reportInterval {
		p.report("reembed progress")
		p.lastReported = p.current
	}
}

// Finish reports the final progress.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report("reembed finished")
}

// Processed returns the number of documents processed so far.
func (p *ProgressTracker) Processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// ETA estimates the time remaining at the current rate. It is zero before
// any document has been processed.
func (p *ProgressTracker) ETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eta(time.Since(p.startTime))
}

func (p *ProgressTracker) eta(elapsed time.Duration) time.Duration {
	if !p.started || p.current == 0 || p.current >= p.total {
		return 0
	}
	perDoc := elapsed / time.Duration(p.current)
	return perDoc * time.Duration(p.total-p.current)
}

// report logs the current progress. Must be called with lock held.
func (p *ProgressTracker) report(msg string) {
	elapsed := time.Since(p.startTime)

	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
	}
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	p.logger.Info(msg,
		"processed", p.current,
		"total", p.total,
		"failed", p.failed,
		"percent", percentage,
		"docs_per_sec", rate,
		"eta", p.eta(elapsed).Round(time.Second),
	)
}
