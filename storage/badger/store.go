package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
)

// Store implements storage.Store on BadgerDB.
//
// Similarity search is a brute-force cosine scan over the chunks of the
// project's documents. Each ReplaceChunks runs in a single read-write
// transaction, so readers see either the old chunk set or the new one.
type Store struct {
	backend   *Backend
	dims      int
	logger    *slog.Logger
	writeHook func(index int) error
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithWriteHook installs fn to run before each chunk is written inside
// ReplaceChunks. A non-nil return aborts the replace; tests use it to
// simulate failures partway through a write.
func WithWriteHook(fn func(index int) error) Option {
	return func(s *Store) error {
		s.writeHook = fn
		return nil
	}
}

// NewStore opens (or creates) an on-disk store at path holding vectors of
// length dims.
//
// Returns storage.Store interface to enforce abstraction.
func NewStore(path string, dims int, opts ...Option) (storage.Store, error) {
	return openStore(path, false, dims, opts...)
}

func openStore(path string, inMemory bool, dims int, opts ...Option) (*Store, error) {
	if dims < 1 {
		return nil, storage.ErrInvalidDimensions
	}

	s := &Store{dims: dims, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	backend, err := OpenBackend(path, inMemory, s.logger)
	if err != nil {
		return nil, err
	}
	s.backend = backend
	s.logger = s.logger.With("component", "badger-store")

	if err := s.checkDimensions(); err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

// checkDimensions records the vector length on first open and refuses to
// reopen the store with a different one.
func (s *Store) checkDimensions() error {
	return s.backend.Run(context.Background(), func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(dimensionsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			if err := tx.Set([]byte(dimensionsKey), binary.BigEndian.AppendUint32(nil, uint32(s.dims))); err != nil {
				return err
			}
			return tx.Commit()
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 4 {
				return storage.ErrTruncatedData
			}
			if stored := int(binary.BigEndian.Uint32(val)); stored != s.dims {
				return fmt.Errorf("%w: store holds %d-dimensional vectors, opened with %d",
					storage.ErrDimensionMismatch, stored, s.dims)
			}
			return nil
		})
	}, true)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

// Dimensions returns the fixed vector length of the store.
func (s *Store) Dimensions() int {
	return s.dims
}

// CreateDocument stores a new document in pending status.
func (s *Store) CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc == nil {
		return nil, core.ValidateDocument(nil)
	}
	created := *doc
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	created.Status = core.StatusPending
	created.StatusReason = ""
	created.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	created.UpdatedAt = created.CreatedAt
	if created.SourceType == "" {
		created.SourceType = core.SourceTypeText
	}
	if err := core.ValidateDocument(&created); err != nil {
		return nil, err
	}

	err := s.backend.Run(ctx, func(tx *badger.Txn) error {
		key := makeDocumentKey(created.ID)
		if _, err := tx.Get(key); err == nil {
			return fmt.Errorf("%w: document %s already exists", core.ErrInvalidDocument, created.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(key, storage.MarshalDocument(&created)); err != nil {
			return err
		}
		if err := tx.Set(makeProjectIndexKey(created.ProjectID, created.ID), nil); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("created document", "document_id", created.ID, "project_id", created.ProjectID)
	return &created, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error) {
	var doc *core.Document
	err := s.backend.Run(ctx, func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, id)
		return err
	}, false)
	return doc, err
}

// UpdateStatus moves a document to status if the lifecycle allows it.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status core.DocumentStatus, reason string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}

	return s.backend.Run(ctx, func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if err := core.CheckTransition(doc.Status, status); err != nil {
			return err
		}
		doc.Status = status
		doc.StatusReason = reason
		doc.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
		if err := tx.Set(makeDocumentKey(id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteDocument removes a document, its project index entry and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return s.backend.Run(ctx, func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if err := deleteChunks(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(makeProjectIndexKey(doc.ProjectID, id)); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListDocuments returns a project's documents ordered by creation time.
func (s *Store) ListDocuments(ctx context.Context, projectID uuid.UUID) ([]*core.Document, error) {
	docs := []*core.Document{}
	err := s.backend.Run(ctx, func(tx *badger.Txn) error {
		for _, key := range prefixKeys(tx, makePartialProjectIndexKey(projectID)) {
			doc, err := readDocument(tx, documentIDFromIndexKey(key))
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(docs, func(a, b *core.Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return docs, nil
}

// ReplaceChunks swaps a document's chunk set inside one transaction.
func (s *Store) ReplaceChunks(ctx context.Context, documentID uuid.UUID, inputs []storage.ChunkInput) ([]core.Chunk, error) {
	if err := storage.ValidateChunks(inputs, s.dims); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	chunks := make([]core.Chunk, len(inputs))

	err := s.backend.Run(ctx, func(tx *badger.Txn) error {
		if _, err := readDocument(tx, documentID); err != nil {
			return err
		}
		if err := deleteChunks(tx, documentID); err != nil {
			return err
		}

		for i, in := range inputs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if s.writeHook != nil {
				if err := s.writeHook(i); err != nil {
					return err
				}
			}
			chunks[i] = core.Chunk{
				ID:         uuid.New(),
				DocumentID: documentID,
				Index:      i,
				Text:       in.Text,
				Vector:     slices.Clone(in.Vector),
				CreatedAt:  now,
			}
			if err := tx.Set(makeChunkKey(documentID, i), storage.MarshalChunk(&chunks[i])); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		s.logger.Warn("chunk replace rolled back", "document_id", documentID, "chunks", len(inputs), "err", err)
		return nil, err
	}
	return chunks, nil
}

// DeleteChunks removes all chunks of a document.
func (s *Store) DeleteChunks(ctx context.Context, documentID uuid.UUID) error {
	return s.backend.Run(ctx, func(tx *badger.Txn) error {
		if err := deleteChunks(tx, documentID); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CountChunks returns the number of chunks stored for a document.
func (s *Store) CountChunks(ctx context.Context, documentID uuid.UUID) (int, error) {
	var n int
	err := s.backend.Run(ctx, func(tx *badger.Txn) error {
		n = len(prefixKeys(tx, makePartialChunkKey(documentID)))
		return nil
	}, false)
	return n, err
}

// SimilaritySearch scans every chunk of the project's documents and ranks
// them by cosine similarity to query.
func (s *Store) SimilaritySearch(ctx context.Context, projectID uuid.UUID, query []float32, limit int) ([]core.ScoredChunk, error) {
	if err := core.ValidateLimit(limit); err != nil {
		return nil, err
	}
	if err := storage.ValidateVector(query, s.dims); err != nil {
		return nil, err
	}

	results := []core.ScoredChunk{}
	err := s.backend.Run(ctx, func(tx *badger.Txn) error {
		// Only the project's own documents are visited.
		for _, key := range prefixKeys(tx, makePartialProjectIndexKey(projectID)) {
			if err := ctx.Err(); err != nil {
				return err
			}
			docID := documentIDFromIndexKey(key)
			err := scanChunks(tx, docID, func(chunk *core.Chunk) {
				results = append(results, core.ScoredChunk{
					Chunk:      *chunk,
					ProjectID:  projectID,
					Similarity: storage.CosineSimilarity(query, chunk.Vector),
				})
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return storage.RankScored(results, limit), nil
}

// readDocument loads a document inside tx.
func readDocument(tx *badger.Txn, id uuid.UUID) (*core.Document, error) {
	item, err := tx.Get(makeDocumentKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: document %s", storage.ErrNotFound, id)
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

// scanChunks calls fn for each chunk of a document in index order.
func scanChunks(tx *badger.Txn, docID uuid.UUID, fn func(*core.Chunk)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkKey(docID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			fn(chunk)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// deleteChunks removes every chunk key of a document inside tx.
func deleteChunks(tx *badger.Txn, docID uuid.UUID) error {
	for _, key := range prefixKeys(tx, makePartialChunkKey(docID)) {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
