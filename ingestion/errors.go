package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrChunkerRequired is returned when WithChunker is given a nil chunker.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrPanic is recorded in a result when processing a document panicked.
	ErrPanic = errors.New("document processing panicked")

	// ErrEmbeddingCount is returned when the embedder returns a different
	// number of vectors than texts it was given.
	ErrEmbeddingCount = errors.New("embedding result count mismatch")
)
