package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
)

// DefaultMaxBodyBytes bounds request bodies unless WithMaxBodyBytes is used.
const DefaultMaxBodyBytes int64 = 10 << 20

// Ingester runs ingestion for stored documents. Reingest also takes over a
// document left in processing by an interrupted run.
type Ingester interface {
	ProcessDocument(ctx context.Context, id uuid.UUID) core.BatchResult
	Reingest(ctx context.Context, id uuid.UUID) core.BatchResult
	ProcessDocumentBatch(ctx context.Context, ids []uuid.UUID) []core.BatchResult
}

// Retriever ranks a project's chunks against a query.
type Retriever interface {
	Retrieve(ctx context.Context, projectID uuid.UUID, query string, k int) ([]core.RetrievedChunk, error)
}

// Handler serves the document, ingestion and retrieval endpoints.
type Handler struct {
	store        storage.DocumentStore
	ingester     Ingester
	retriever    Retriever
	maxBodyBytes int64
	logger       *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) error {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
		return nil
	}
}

// WithMaxBodyBytes bounds the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) error {
		if n < 1 {
			return fmt.Errorf("max body bytes must be positive: %d", n)
		}
		h.maxBodyBytes = n
		return nil
	}
}

// NewHandler creates a handler over the given components.
func NewHandler(store storage.DocumentStore, ingester Ingester, retriever Retriever, opts ...Option) (*Handler, error) {
	if store == nil || ingester == nil || retriever == nil {
		return nil, errors.New("api: store, ingester and retriever are required")
	}

	h := &Handler{
		store:        store,
		ingester:     ingester,
		retriever:    retriever,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	h.logger = h.logger.With("component", "api")
	return h, nil
}

// Routes returns the route groups served by the handler.
func (h *Handler) Routes() []Group {
	return []Group{
		{
			Prefix: "/v1/projects/{projectID}",
			Routes: []Route{
				{Method: "POST", Pattern: "/documents", Handler: h.CreateDocument},
				{Method: "GET", Pattern: "/documents", Handler: h.ListDocuments},
				{Method: "POST", Pattern: "/retrieve", Handler: h.Retrieve},
			},
		},
		{
			Prefix: "/v1/documents",
			Routes: []Route{
				{Method: "GET", Pattern: "/{id}", Handler: h.GetDocument},
				{Method: "DELETE", Pattern: "/{id}", Handler: h.DeleteDocument},
				{Method: "POST", Pattern: "/{id}/ingest", Handler: h.IngestDocument},
			},
		},
		{
			Prefix: "/v1",
			Routes: []Route{
				{Method: "POST", Pattern: "/ingest", Handler: h.IngestBatch},
			},
		},
		{
			Routes: []Route{
				{Method: "GET", Pattern: "/healthz", Handler: h.Health},
			},
		},
	}
}

// Handler builds the complete http.Handler.
func (h *Handler) Handler() http.Handler {
	return TrimSlash(Build(h.Routes()...))
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// decode reads a JSON body into v, rejecting unknown fields and trailing data.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}
