package api

import (
	"net/http"

	"github.com/poiesic/knowledge/core"
)

// RetrieveRequest is the body of POST /v1/projects/{projectID}/retrieve.
// K of zero or absent selects the server default.
type RetrieveRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// RetrieveResponse lists the retrieved chunks, most similar first.
type RetrieveResponse struct {
	Chunks []core.RetrievedChunk `json:"chunks"`
}

// Retrieve handles POST /v1/projects/{projectID}/retrieve.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var req RetrieveRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	chunks, err := h.retriever.Retrieve(r.Context(), projectID, req.Query, req.K)
	if err != nil {
		respondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	respondJSON(w, http.StatusOK, RetrieveResponse{Chunks: chunks})
}
