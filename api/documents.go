package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
)

// CreateDocumentRequest is the body of POST /v1/projects/{projectID}/documents.
type CreateDocumentRequest struct {
	Name       string          `json:"name"`
	SourceType core.SourceType `json:"source_type,omitempty"`
	Content    string          `json:"content"`
}

// DocumentResponse is the wire form of a document. Content is omitted.
type DocumentResponse struct {
	ID           uuid.UUID           `json:"id"`
	ProjectID    uuid.UUID           `json:"project_id"`
	Name         string              `json:"name"`
	SourceType   core.SourceType     `json:"source_type"`
	Status       core.DocumentStatus `json:"status"`
	StatusReason string              `json:"status_reason,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func documentResponse(doc *core.Document) DocumentResponse {
	return DocumentResponse{
		ID:           doc.ID,
		ProjectID:    doc.ProjectID,
		Name:         doc.Name,
		SourceType:   doc.SourceType,
		Status:       doc.Status,
		StatusReason: doc.StatusReason,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

// CreateDocument handles POST /v1/projects/{projectID}/documents. The
// document is stored pending; ingestion is triggered separately.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var req CreateDocumentRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	doc, err := h.store.CreateDocument(r.Context(), &core.Document{
		ProjectID:  projectID,
		Name:       req.Name,
		SourceType: req.SourceType,
		Content:    req.Content,
	})
	if err != nil {
		respondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	respondJSON(w, http.StatusCreated, documentResponse(doc))
}

// ListDocuments handles GET /v1/projects/{projectID}/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	docs, err := h.store.ListDocuments(r.Context(), projectID)
	if err != nil {
		respondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	out := make([]DocumentResponse, len(docs))
	for i, doc := range docs {
		out[i] = documentResponse(doc)
	}
	respondJSON(w, http.StatusOK, map[string]any{"documents": out})
}

// GetDocument handles GET /v1/documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	respondJSON(w, http.StatusOK, documentResponse(doc))
}

// DeleteDocument handles DELETE /v1/documents/{id}. The document's chunks
// are removed with it.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.store.DeleteDocument(r.Context(), id); err != nil {
		respondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
