package storage

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
)

// ChunkInput is a chunk to be persisted: its text and embedding.
// Its position in the slice passed to ReplaceChunks becomes its index.
type ChunkInput struct {
	Text   string
	Vector []float32
}

// DocumentStore provides operations for managing documents and their
// ingestion status. Implementations must be thread-safe.
type DocumentStore interface {
	// CreateDocument stores a new document in pending status.
	// Generates an ID if doc.ID is zero and sets CreatedAt/UpdatedAt.
	CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error)

	// UpdateStatus moves a document to a new status, recording reason.
	// The current status is read and checked with core.CheckTransition in the
	// same unit of work as the write.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status core.DocumentStatus, reason string) error

	// DeleteDocument removes a document and all of its chunks.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	// ListDocuments returns a project's documents ordered by creation time.
	ListDocuments(ctx context.Context, projectID uuid.UUID) ([]*core.Document, error)
}

// VectorStore persists chunk sets and ranks them against query vectors.
// Implementations must be thread-safe.
type VectorStore interface {
	// ReplaceChunks atomically replaces every chunk of a document with chunks.
	// On failure the previous chunk set is left untouched.
	// Returns ErrNotFound if the document doesn't exist and
	// ErrDimensionMismatch if any vector has the wrong length.
	ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []ChunkInput) ([]core.Chunk, error)

	// DeleteChunks removes all chunks of a document.
	// Deleting the chunks of a document that has none is not an error.
	DeleteChunks(ctx context.Context, documentID uuid.UUID) error

	// SimilaritySearch returns up to limit chunks belonging to projectID's
	// documents, ordered as described by RankScored.
	// limit must be positive.
	SimilaritySearch(ctx context.Context, projectID uuid.UUID, query []float32, limit int) ([]core.ScoredChunk, error)

	// CountChunks returns the number of chunks stored for a document.
	CountChunks(ctx context.Context, documentID uuid.UUID) (int, error)

	// Dimensions returns the fixed vector length of the store.
	Dimensions() int
}

// Store combines document and vector storage behind one lifecycle.
type Store interface {
	DocumentStore
	VectorStore
	io.Closer
}
