package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
)

// MaxBatchSize caps the number of documents one ingestion request may name.
const MaxBatchSize = 1000

// IngestRequest is the body of POST /v1/ingest.
type IngestRequest struct {
	DocumentIDs []uuid.UUID `json:"document_ids"`
}

// IngestResponse carries one result per requested document, in request order.
type IngestResponse struct {
	Results []core.BatchResult `json:"results"`
}

// IngestDocument handles POST /v1/documents/{id}/ingest.
// With ?force=true a document stuck in processing is taken over and ingested
// again; callers must know the earlier run is dead.
func (h *Handler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		if force, err = strconv.ParseBool(v); err != nil {
			respondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid force value %q", v))
			return
		}
	}

	var result core.BatchResult
	if force {
		h.logger.Info("forced re-ingestion", "document_id", id)
		result = h.ingester.Reingest(r.Context(), id)
	} else {
		result = h.ingester.ProcessDocument(r.Context(), id)
	}
	respondJSON(w, resultStatus(result), result)
}

// IngestBatch handles POST /v1/ingest.
func (h *Handler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	switch {
	case len(req.DocumentIDs) == 0:
		respondError(w, h.logger, http.StatusBadRequest, errors.New("document_ids cannot be empty"))
		return
	case len(req.DocumentIDs) > MaxBatchSize:
		respondError(w, h.logger, http.StatusRequestEntityTooLarge, errors.New("too many document_ids"))
		return
	}

	results := h.ingester.ProcessDocumentBatch(r.Context(), req.DocumentIDs)
	respondJSON(w, batchStatus(results), IngestResponse{Results: results})
}
