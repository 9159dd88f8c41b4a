// Package storetest is a contract test suite shared by every storage.Store
// implementation.
package storetest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dimensions is the vector length the suite opens stores with.
const Dimensions = 2

// Factory opens an empty store with the given vector length. The suite
// closes the store when the test finishes.
type Factory func(t *testing.T, dims int) storage.Store

// Run exercises the full storage.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"CreateAndGetDocument", testCreateAndGetDocument},
		{"GetDocumentNotFound", testGetDocumentNotFound},
		{"ListDocuments", testListDocuments},
		{"UpdateStatus", testUpdateStatus},
		{"DeleteDocumentCascades", testDeleteDocumentCascades},
		{"ReplaceChunks", testReplaceChunks},
		{"ReplaceChunksUnknownDocument", testReplaceChunksUnknownDocument},
		{"ReplaceChunksDimensionMismatch", testReplaceChunksDimensionMismatch},
		{"DeleteChunks", testDeleteChunks},
		{"SimilaritySearchTopK", testSimilaritySearchTopK},
		{"SimilaritySearchProjectScoping", testSimilaritySearchProjectScoping},
		{"SimilaritySearchTiesPreferNewest", testSimilaritySearchTiesPreferNewest},
		{"SimilaritySearchEmptyCorpus", testSimilaritySearchEmptyCorpus},
		{"SimilaritySearchInvalidInput", testSimilaritySearchInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, Dimensions)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

// VectorWithSimilarity returns a unit vector whose cosine similarity to
// Query is sim.
func VectorWithSimilarity(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

// Query is the query vector used by VectorWithSimilarity.
var Query = []float32{1, 0}

// NewDocument stores a pending document in project.
func NewDocument(t *testing.T, s storage.DocumentStore, project uuid.UUID, name, content string) *core.Document {
	t.Helper()
	doc, err := s.CreateDocument(context.Background(), &core.Document{
		ProjectID:  project,
		Name:       name,
		SourceType: core.SourceTypeText,
		Content:    content,
	})
	require.NoError(t, err)
	return doc
}

func chunks(sims ...float64) []storage.ChunkInput {
	out := make([]storage.ChunkInput, len(sims))
	for i, sim := range sims {
		out[i] = storage.ChunkInput{Text: "chunk", Vector: VectorWithSimilarity(sim)}
	}
	return out
}

func testCreateAndGetDocument(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := uuid.New()

	created := NewDocument(t, s, project, "guide.txt", "Some content.")
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, core.StatusPending, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetDocument(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, project, got.ProjectID)
	assert.Equal(t, "guide.txt", got.Name)
	assert.Equal(t, core.SourceTypeText, got.SourceType)
	assert.Equal(t, "Some content.", got.Content)
	assert.Equal(t, core.StatusPending, got.Status)

	_, err = s.CreateDocument(ctx, &core.Document{Name: "no project"})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func testGetDocumentNotFound(t *testing.T, s storage.Store) {
	_, err := s.GetDocument(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testListDocuments(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p1, p2 := uuid.New(), uuid.New()

	a := NewDocument(t, s, p1, "a", "alpha")
	b := NewDocument(t, s, p1, "b", "beta")
	NewDocument(t, s, p2, "c", "gamma")

	docs, err := s.ListDocuments(ctx, p1)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	ids := []uuid.UUID{docs[0].ID, docs[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids)

	empty, err := s.ListDocuments(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testUpdateStatus(t *testing.T, s storage.Store) {
	ctx := context.Background()
	doc := NewDocument(t, s, uuid.New(), "doc", "text")

	require.NoError(t, s.UpdateStatus(ctx, doc.ID, core.StatusProcessing, ""))
	require.NoError(t, s.UpdateStatus(ctx, doc.ID, core.StatusFailed, "embedding unavailable"))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Equal(t, "embedding unavailable", got.StatusReason)

	// retry clears the reason once processing succeeds
	require.NoError(t, s.UpdateStatus(ctx, doc.ID, core.StatusProcessing, ""))
	require.NoError(t, s.UpdateStatus(ctx, doc.ID, core.StatusComplete, ""))
	got, err = s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusComplete, got.Status)
	assert.Empty(t, got.StatusReason)

	err = s.UpdateStatus(ctx, doc.ID, core.StatusFailed, "")
	assert.ErrorIs(t, err, core.ErrInvalidStatusTransition)

	err = s.UpdateStatus(ctx, doc.ID, core.DocumentStatus("bogus"), "")
	assert.ErrorIs(t, err, core.ErrInvalidStatus)

	err = s.UpdateStatus(ctx, uuid.New(), core.StatusProcessing, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDeleteDocumentCascades(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := uuid.New()
	doc := NewDocument(t, s, project, "doc", "text")

	_, err := s.ReplaceChunks(ctx, doc.ID, chunks(0.9, 0.8))
	require.NoError(t, err)

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	_, err = s.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := s.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	results, err := s.SimilaritySearch(ctx, project, Query, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.ErrorIs(t, s.DeleteDocument(ctx, doc.ID), storage.ErrNotFound)
}

func testReplaceChunks(t *testing.T, s storage.Store) {
	ctx := context.Background()
	doc := NewDocument(t, s, uuid.New(), "doc", "text")

	first, err := s.ReplaceChunks(ctx, doc.ID, chunks(0.1, 0.2, 0.3))
	require.NoError(t, err)
	require.Len(t, first, 3)
	for i, c := range first {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, doc.ID, c.DocumentID)
		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.Len(t, c.Vector, Dimensions)
		assert.False(t, c.CreatedAt.IsZero())
	}

	second, err := s.ReplaceChunks(ctx, doc.ID, chunks(0.7))
	require.NoError(t, err)
	require.Len(t, second, 1)

	n, err := s.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "old chunks must be gone after replace")

	_, err = s.ReplaceChunks(ctx, doc.ID, nil)
	require.NoError(t, err)
	n, err = s.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testReplaceChunksUnknownDocument(t *testing.T, s storage.Store) {
	_, err := s.ReplaceChunks(context.Background(), uuid.New(), chunks(0.5))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testReplaceChunksDimensionMismatch(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := uuid.New()
	doc := NewDocument(t, s, project, "doc", "text")

	_, err := s.ReplaceChunks(ctx, doc.ID, chunks(0.9, 0.4))
	require.NoError(t, err)

	bad := append(chunks(0.1), storage.ChunkInput{Text: "wrong", Vector: []float32{1, 0, 0}})
	_, err = s.ReplaceChunks(ctx, doc.ID, bad)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	n, err := s.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "store must be unchanged after a rejected replace")

	_, err = s.ReplaceChunks(ctx, doc.ID, []storage.ChunkInput{{Text: "inf", Vector: []float32{float32(math.Inf(-1)), 0}}})
	assert.ErrorIs(t, err, storage.ErrNonFiniteVector)

	results, err := s.SimilaritySearch(ctx, project, Query, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 0.9, results[0].Similarity, 1e-4)
}

func testDeleteChunks(t *testing.T, s storage.Store) {
	ctx := context.Background()
	doc := NewDocument(t, s, uuid.New(), "doc", "text")

	_, err := s.ReplaceChunks(ctx, doc.ID, chunks(0.5, 0.6))
	require.NoError(t, err)
	require.NoError(t, s.DeleteChunks(ctx, doc.ID))

	n, err := s.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	// the document itself survives
	_, err = s.GetDocument(ctx, doc.ID)
	assert.NoError(t, err)

	assert.NoError(t, s.DeleteChunks(ctx, doc.ID), "deleting an empty chunk set is not an error")
}

func testSimilaritySearchTopK(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := uuid.New()
	doc := NewDocument(t, s, project, "doc", "text")

	_, err := s.ReplaceChunks(ctx, doc.ID, chunks(0.9, 0.5, 0.95, 0.1))
	require.NoError(t, err)

	results, err := s.SimilaritySearch(ctx, project, Query, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 0.95, results[0].Similarity, 1e-4)
	assert.Equal(t, 2, results[0].Chunk.Index)
	assert.InDelta(t, 0.9, results[1].Similarity, 1e-4)
	assert.Equal(t, 0, results[1].Chunk.Index)
	assert.Equal(t, project, results[0].ProjectID)

	all, err := s.SimilaritySearch(ctx, project, Query, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4, "fewer chunks than limit returns all of them")
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Similarity, all[i].Similarity)
	}
}

func testSimilaritySearchProjectScoping(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p, q := uuid.New(), uuid.New()

	mine := NewDocument(t, s, p, "mine", "text")
	theirs := NewDocument(t, s, q, "theirs", "text")

	_, err := s.ReplaceChunks(ctx, mine.ID, chunks(0.2, 0.3))
	require.NoError(t, err)
	_, err = s.ReplaceChunks(ctx, theirs.ID, chunks(0.99, 0.98))
	require.NoError(t, err)

	results, err := s.SimilaritySearch(ctx, p, Query, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, mine.ID, r.Chunk.DocumentID)
		assert.Equal(t, p, r.ProjectID)
	}
}

func testSimilaritySearchTiesPreferNewest(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := uuid.New()
	older := NewDocument(t, s, project, "older", "text")
	newer := NewDocument(t, s, project, "newer", "text")

	_, err := s.ReplaceChunks(ctx, older.ID, chunks(0.6))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = s.ReplaceChunks(ctx, newer.ID, chunks(0.6))
	require.NoError(t, err)

	results, err := s.SimilaritySearch(ctx, project, Query, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, newer.ID, results[0].Chunk.DocumentID)
}

func testSimilaritySearchEmptyCorpus(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := uuid.New()
	NewDocument(t, s, project, "pending", "not ingested yet")

	results, err := s.SimilaritySearch(ctx, project, Query, 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func testSimilaritySearchInvalidInput(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := uuid.New()

	_, err := s.SimilaritySearch(ctx, project, Query, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidLimit)

	_, err = s.SimilaritySearch(ctx, project, Query, -3)
	assert.ErrorIs(t, err, storage.ErrInvalidLimit)

	_, err = s.SimilaritySearch(ctx, project, []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = s.SimilaritySearch(ctx, project, []float32{float32(math.NaN()), 1}, 5)
	assert.ErrorIs(t, err, storage.ErrNonFiniteVector)
}
