package storage

import (
	"bytes"
	"fmt"
	"math"
	"slices"

	"github.com/poiesic/knowledge/core"
)

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// Zero vectors have similarity 0 with everything.
func CosineSimilarity(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// ValidateVector checks that v has exactly dims elements, all of them finite.
func ValidateVector(v []float32, dims int) error {
	if len(v) != dims {
		return fmt.Errorf("%w: got %d, store expects %d", ErrDimensionMismatch, len(v), dims)
	}
	for i, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w: component %d is %v", ErrNonFiniteVector, i, f)
		}
	}
	return nil
}

// ValidateChunks checks every chunk before a replace is attempted.
func ValidateChunks(chunks []ChunkInput, dims int) error {
	for i, c := range chunks {
		if err := ValidateVector(c.Vector, dims); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return nil
}

// CompareScored orders scored chunks: similarity descending, then newest
// chunk first, then document id and chunk index ascending.
func CompareScored(a, b core.ScoredChunk) int {
	switch {
	case a.Similarity > b.Similarity:
		return -1
	case a.Similarity < b.Similarity:
		return 1
	}
	if c := b.Chunk.CreatedAt.Compare(a.Chunk.CreatedAt); c != 0 {
		return c
	}
	if c := bytes.Compare(a.Chunk.DocumentID[:], b.Chunk.DocumentID[:]); c != 0 {
		return c
	}
	return a.Chunk.Index - b.Chunk.Index
}

// RankScored sorts results with CompareScored and keeps the first limit.
func RankScored(results []core.ScoredChunk, limit int) []core.ScoredChunk {
	slices.SortFunc(results, CompareScored)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
