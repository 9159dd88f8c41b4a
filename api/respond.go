package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/poiesic/knowledge/core"
)

// respondJSON writes a JSON response with the given status code and data.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError logs the error and writes {"error": "<message>"}.
func respondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("handler error", "err", err, "status", status)
	} else {
		logger.Debug("request rejected", "err", err, "status", status)
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// MapHTTPStatus translates the failure taxonomy into an HTTP status code.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, core.ErrInvalidLimit),
		errors.Is(err, core.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrEmbeddingUnavailable),
		errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// batchStatus maps per-document results to the status of the whole request.
func batchStatus(results []core.BatchResult) int {
	failed := 0
	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}
	switch {
	case failed == 0:
		return http.StatusOK
	case failed == len(results):
		return http.StatusUnprocessableEntity
	}
	return http.StatusMultiStatus
}

// resultStatus maps a single ingestion result. Lookup and claim failures keep
// their taxonomy status; processing failures are 422.
func resultStatus(result core.BatchResult) int {
	if result.Succeeded() {
		return http.StatusOK
	}
	switch {
	case errors.Is(result.Err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(result.Err, core.ErrInvalidStatusTransition):
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}
