package badger

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Key prefixes for different data types
const (
	documentPrefix     = "doc:"
	projectIndexPrefix = "docproj:"
	chunkPrefix        = "chunk:"
	dimensionsKey      = "meta:dims"
)

// makeDocumentKey generates a key for a document by ID.
// Format: prefix:docID
func makeDocumentKey(id uuid.UUID) []byte {
	buf := make([]byte, 0, len(documentPrefix)+16)
	buf = append(buf, documentPrefix...)
	return append(buf, id[:]...)
}

// makeProjectIndexKey generates a composite key for the project index.
// Format: prefix:projectID:docID
func makeProjectIndexKey(projectID, docID uuid.UUID) []byte {
	buf := makePartialProjectIndexKey(projectID)
	return append(buf, docID[:]...)
}

// makePartialProjectIndexKey generates a partial key for project queries.
// Format: prefix:projectID
func makePartialProjectIndexKey(projectID uuid.UUID) []byte {
	buf := make([]byte, 0, len(projectIndexPrefix)+32)
	buf = append(buf, projectIndexPrefix...)
	return append(buf, projectID[:]...)
}

// documentIDFromIndexKey extracts the document ID from a project index key.
func documentIDFromIndexKey(key []byte) uuid.UUID {
	var id uuid.UUID
	copy(id[:], key[len(projectIndexPrefix)+16:])
	return id
}

// makeChunkKey generates a key for one chunk of a document.
// Format: prefix:docID:index
func makeChunkKey(docID uuid.UUID, index int) []byte {
	buf := makePartialChunkKey(docID)
	// Write in BigEndian order so lexicographic sort follows chunk order
	return binary.BigEndian.AppendUint32(buf, uint32(index))
}

// makePartialChunkKey generates a partial key covering all chunks of a document.
// Format: prefix:docID
func makePartialChunkKey(docID uuid.UUID) []byte {
	buf := make([]byte, 0, len(chunkPrefix)+20)
	buf = append(buf, chunkPrefix...)
	return append(buf, docID[:]...)
}
