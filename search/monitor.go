package search

import (
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
)

// RetrievalMonitor provides hooks to observe a retrieval.
// Implement this interface to track intermediate steps and results.
type RetrievalMonitor interface {
	Start(projectID uuid.UUID, query string, k int)
	AfterEmbedding(dims int, elapsed time.Duration)
	AfterSearch(matches []core.ScoredChunk, elapsed time.Duration)
	Finish(results []core.RetrievedChunk, err error)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ uuid.UUID, _ string, _ int)                {}
func (n *noopMonitor) AfterEmbedding(_ int, _ time.Duration)             {}
func (n *noopMonitor) AfterSearch(_ []core.ScoredChunk, _ time.Duration) {}
func (n *noopMonitor) Finish(_ []core.RetrievedChunk, _ error)           {}
