package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ContentID is a deterministic identifier derived from text content.
type ContentID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ContentID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ContentID(binary.LittleEndian.Uint64(sum))
}

// SourceType describes where a document's raw content came from.
type SourceType string

const (
	SourceTypeText     SourceType = "text"
	SourceTypeMarkdown SourceType = "markdown"
	SourceTypePDF      SourceType = "pdf"
	SourceTypeHTML     SourceType = "html"
)

// Document is an uploaded project document whose content is turned into
// searchable chunks by the ingestion pipeline.
type Document struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	Name         string
	SourceType   SourceType
	Content      string
	Status       DocumentStatus
	StatusReason string    // Human-readable failure reason when Status is failed
	CreatedAt    time.Time // When the document was created in storage
	UpdatedAt    time.Time // When the document was last updated
}

// ContentVersion returns a hash of the document content.
// Chunks persisted for a document always belong to exactly one content version.
func (d *Document) ContentVersion() ContentID {
	return IDFromContent(d.Content)
}

// Chunk is a bounded, contiguous segment of a document together with its embedding.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Index      int // Position within the document, in source text order
	Text       string
	Vector     []float32
	CreatedAt  time.Time
}

// ScoredChunk is a chunk returned from a similarity search.
type ScoredChunk struct {
	Chunk      Chunk
	ProjectID  uuid.UUID
	Similarity float32
}

// RetrievedChunk is the retrieval result handed to answer generation.
type RetrievedChunk struct {
	ChunkText  string    `json:"chunk_text"`
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Similarity float32   `json:"similarity"`
}

// ResultStatus is the outcome of processing one document.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
)

// BatchResult is the per-document outcome of an ingestion run. It is never persisted.
type BatchResult struct {
	DocumentID uuid.UUID    `json:"document_id"`
	Status     ResultStatus `json:"status"`
	Error      string       `json:"error,omitempty"`
	ChunkCount int          `json:"chunk_count"`

	// Err is the underlying failure for in-process callers. It is not serialized.
	Err error `json:"-"`
}

// Succeeded reports whether the document was ingested.
func (r BatchResult) Succeeded() bool {
	return r.Status == ResultSuccess
}

// SuccessResult builds a successful BatchResult.
func SuccessResult(id uuid.UUID, chunkCount int) BatchResult {
	return BatchResult{DocumentID: id, Status: ResultSuccess, ChunkCount: chunkCount}
}

// FailedResult builds a failed BatchResult carrying err's message.
func FailedResult(id uuid.UUID, err error) BatchResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return BatchResult{DocumentID: id, Status: ResultFailed, Error: msg, Err: err}
}
