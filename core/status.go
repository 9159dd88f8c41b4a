package core

import "fmt"

// DocumentStatus tracks where a document is in the ingestion lifecycle.
type DocumentStatus string

const (
	// StatusPending is the initial status of an uploaded document.
	StatusPending DocumentStatus = "pending"
	// StatusProcessing is set while the document is being chunked and embedded.
	StatusProcessing DocumentStatus = "processing"
	// StatusComplete means the document's chunks are persisted and searchable.
	StatusComplete DocumentStatus = "complete"
	// StatusFailed means the last ingestion attempt failed.
	StatusFailed DocumentStatus = "failed"
)

// transitions lists the allowed target statuses for each status.
var transitions = map[DocumentStatus][]DocumentStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusComplete, StatusFailed},
	StatusFailed:     {StatusProcessing},
	StatusComplete:   {StatusProcessing},
}

// Valid reports whether s is one of the known statuses.
func (s DocumentStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s DocumentStatus) String() string {
	return string(s)
}

// ParseDocumentStatus converts a string into a DocumentStatus.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	status := DocumentStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// CanTransition reports whether a document may move from one status to another.
// Statuses only move forward, except failed→processing (retry) and
// complete→processing (explicit re-ingestion).
func CanTransition(from, to DocumentStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidStatusTransition when CanTransition is false.
func CheckTransition(from, to DocumentStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
	}
	return nil
}
