package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
)

// insertBatchSize bounds the rows per INSERT so a statement stays well under
// PostgreSQL's 65535 parameter limit.
const insertBatchSize = 500

// Store implements storage.Store on PostgreSQL with the pgvector extension.
//
// Similarity search is exact: the query joins chunks to their documents and
// filters on project_id before ranking, so no chunk from another project is
// ever scored.
type Store struct {
	db           *sql.DB
	dims         int
	logger       *slog.Logger
	queryTimeout time.Duration
	connTimeout  time.Duration
	maxOpenConns int
	maxIdleConns int
	connLifetime time.Duration
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

// WithPool sets connection pool limits.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) Option {
	return func(s *Store) error {
		if maxOpen < 1 || maxIdle < 0 {
			return fmt.Errorf("invalid pool limits: open=%d idle=%d", maxOpen, maxIdle)
		}
		s.maxOpenConns = maxOpen
		s.maxIdleConns = maxIdle
		s.connLifetime = lifetime
		return nil
	}
}

// WithConnTimeout bounds the initial connectivity check.
func WithConnTimeout(d time.Duration) Option {
	return func(s *Store) error {
		s.connTimeout = d
		return nil
	}
}

// WithQueryTimeout bounds each similarity search.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Store) error {
		s.queryTimeout = d
		return nil
	}
}

// Open connects to PostgreSQL and verifies that the schema holds vectors of
// length dims. Run Migrate first on a fresh database.
//
// Returns storage.Store interface to enforce abstraction.
func Open(ctx context.Context, dsn string, dims int, opts ...Option) (storage.Store, error) {
	return open(ctx, dsn, dims, opts...)
}

func open(ctx context.Context, dsn string, dims int, opts ...Option) (*Store, error) {
	if dims < 1 {
		return nil, storage.ErrInvalidDimensions
	}

	s := &Store{
		dims:         dims,
		logger:       slog.Default(),
		queryTimeout: 5 * time.Second,
		connTimeout:  5 * time.Second,
		maxOpenConns: 25,
		maxIdleConns: 5,
		connLifetime: 15 * time.Minute,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "postgres-store")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxIdleConns)
	db.SetConnMaxLifetime(s.connLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, s.connTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", mapError(err))
	}
	s.db = db

	if err := s.checkDimensions(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// checkDimensions compares dims with the value recorded by Migrate.
func (s *Store) checkDimensions(ctx context.Context) error {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_settings WHERE key = 'dimensions'`).Scan(&value)
	if err != nil {
		return fmt.Errorf("read store settings (has the schema been migrated?): %w", mapError(err))
	}
	stored, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: dimensions setting %q", storage.ErrSerializationFailed, value)
	}
	if stored != s.dims {
		return fmt.Errorf("%w: schema holds %d-dimensional vectors, opened with %d",
			storage.ErrDimensionMismatch, stored, s.dims)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dimensions returns the fixed vector length of the store.
func (s *Store) Dimensions() int {
	return s.dims
}

const documentProjection = `id, project_id, name, source_type, content, status, status_reason, created_at, updated_at`

func scanDocument(sc scanner) (*core.Document, error) {
	var doc core.Document
	var sourceType, status string
	err := sc.Scan(&doc.ID, &doc.ProjectID, &doc.Name, &sourceType, &doc.Content,
		&status, &doc.StatusReason, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.SourceType = core.SourceType(sourceType)
	if doc.Status, err = core.ParseDocumentStatus(status); err != nil {
		return nil, fmt.Errorf("%w: document %s: %w", storage.ErrStoreUnavailable, doc.ID, err)
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return &doc, nil
}

// now returns the current time at the precision PostgreSQL stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
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
	created.CreatedAt = now()
	created.UpdatedAt = created.CreatedAt
	if created.SourceType == "" {
		created.SourceType = core.SourceTypeText
	}
	if err := core.ValidateDocument(&created); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO documents (id, project_id, name, source_type, content, status, status_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, q, created.ID, created.ProjectID, created.Name, string(created.SourceType),
		created.Content, string(created.Status), created.StatusReason, created.CreatedAt, created.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	s.logger.Debug("document created", "document_id", created.ID, "project_id", created.ProjectID)
	return &created, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error) {
	q := `SELECT ` + documentProjection + ` FROM documents WHERE id = $1`
	doc, err := queryOne(ctx, s.db, q, []any{id}, scanDocument)
	if err != nil {
		return nil, mapError(err)
	}
	return doc, nil
}

// UpdateStatus locks the document row, checks the transition and writes the
// new status.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status core.DocumentStatus, reason string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}

	_, err := withTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			return struct{}{}, err
		}
		if err := core.CheckTransition(core.DocumentStatus(current), status); err != nil {
			return struct{}{}, err
		}
		q := `UPDATE documents SET status = $2, status_reason = $3, updated_at = $4 WHERE id = $1`
		return struct{}{}, execExpectOne(ctx, tx, q, id, string(status), reason, now())
	})
	return mapError(err)
}

// DeleteDocument removes a document; its chunks go with it through the
// ON DELETE CASCADE foreign key.
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	if err := execExpectOne(ctx, s.db, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return mapError(err)
	}
	s.logger.Info("document deleted", "document_id", id)
	return nil
}

// ListDocuments returns a project's documents ordered by creation time.
func (s *Store) ListDocuments(ctx context.Context, projectID uuid.UUID) ([]*core.Document, error) {
	q := `SELECT ` + documentProjection + ` FROM documents WHERE project_id = $1 ORDER BY created_at, id`
	docs, err := queryMany(ctx, s.db, q, []any{projectID}, scanDocument)
	if err != nil {
		return nil, mapError(err)
	}
	return docs, nil
}

// ReplaceChunks deletes the document's chunks and inserts the new set in one
// transaction. The document row is locked first so concurrent replaces of the
// same document run one after the other.
func (s *Store) ReplaceChunks(ctx context.Context, documentID uuid.UUID, inputs []storage.ChunkInput) ([]core.Chunk, error) {
	if err := storage.ValidateChunks(inputs, s.dims); err != nil {
		return nil, err
	}

	created := now()
	chunks := make([]core.Chunk, len(inputs))
	for i, in := range inputs {
		chunks[i] = core.Chunk{
			ID:         uuid.New(),
			DocumentID: documentID,
			Index:      i,
			Text:       in.Text,
			Vector:     append([]float32(nil), in.Vector...),
			CreatedAt:  created,
		}
	}

	_, err := withTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		var locked uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE id = $1 FOR UPDATE`, documentID).Scan(&locked)
		if err != nil {
			return struct{}{}, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
			return struct{}{}, err
		}
		for start := 0; start < len(chunks); start += insertBatchSize {
			end := min(start+insertBatchSize, len(chunks))
			if err := insertChunks(ctx, tx, chunks[start:end]); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		err = mapError(err)
		s.logger.Warn("chunk replace rolled back", "document_id", documentID, "chunks", len(inputs), "err", err)
		return nil, err
	}
	return chunks, nil
}

// insertChunks writes chunks with one multi-row INSERT.
func insertChunks(ctx context.Context, tx *sql.Tx, chunks []core.Chunk) error {
	const cols = 6
	var b strings.Builder
	b.WriteString(`INSERT INTO chunks (id, document_id, chunk_index, chunk_text, embedding, created_at) VALUES `)
	args := make([]any, 0, len(chunks)*cols)
	for i, c := range chunks {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * cols
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d::vector, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, c.ID, c.DocumentID, c.Index, c.Text, pgvector.NewVector(c.Vector), c.CreatedAt)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

// DeleteChunks removes all chunks of a document.
func (s *Store) DeleteChunks(ctx context.Context, documentID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return mapError(err)
}

// CountChunks returns the number of chunks stored for a document.
func (s *Store) CountChunks(ctx context.Context, documentID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&n)
	return n, mapError(err)
}

const similarityQuery = `
	SELECT c.id, c.document_id, c.chunk_index, c.chunk_text, c.embedding, c.created_at,
	       1 - (c.embedding <=> $2::vector) AS similarity
	FROM chunks c
	JOIN documents d ON d.id = c.document_id
	WHERE d.project_id = $1
	ORDER BY similarity DESC, c.created_at DESC, c.document_id, c.chunk_index
	LIMIT $3`

// SimilaritySearch ranks the project's chunks by cosine similarity to query.
func (s *Store) SimilaritySearch(ctx context.Context, projectID uuid.UUID, query []float32, limit int) ([]core.ScoredChunk, error) {
	if err := core.ValidateLimit(limit); err != nil {
		return nil, err
	}
	if err := storage.ValidateVector(query, s.dims); err != nil {
		return nil, err
	}

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	scan := func(sc scanner) (core.ScoredChunk, error) {
		var c core.Chunk
		var vec pgvector.Vector
		var similarity float64
		if err := sc.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &vec, &c.CreatedAt, &similarity); err != nil {
			return core.ScoredChunk{}, err
		}
		c.Vector = vec.Slice()
		c.CreatedAt = c.CreatedAt.UTC()
		return core.ScoredChunk{Chunk: c, ProjectID: projectID, Similarity: float32(similarity)}, nil
	}

	results, err := queryMany(ctx, s.db, similarityQuery, []any{projectID, pgvector.NewVector(query), limit}, scan)
	if err != nil {
		err = mapError(err)
		s.logger.Error("similarity search failed", "project_id", projectID, "err", err)
		return nil, err
	}
	return results, nil
}
