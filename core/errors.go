// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared by every component of the pipeline.
var (
	// ErrNotFound indicates that a referenced document or project does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmbeddingUnavailable indicates that the embedding model exhausted its
	// retries or returned a permanent error.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// store's fixed dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrStoreUnavailable indicates an underlying persistence or query failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidStatus indicates an unknown DocumentStatus value.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrInvalidStatusTransition indicates a status change the lifecycle forbids.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrEmptyInput indicates empty text was passed where content is required.
	ErrEmptyInput = errors.New("input cannot be empty")

	// ErrInvalidLimit indicates a non-positive result limit.
	ErrInvalidLimit = errors.New("limit must be positive")
)

// EmbeddingError is returned when an embedding request could not be satisfied.
// It matches ErrEmbeddingUnavailable with errors.Is and unwraps to the last
// underlying error for diagnostics.
type EmbeddingError struct {
	Attempts  int   // Number of calls made to the embedding model
	Permanent bool  // True if the failure was not retryable
	Err       error // Last underlying error
}

func (e *EmbeddingError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s after %d attempt(s) (%s): %v", ErrEmbeddingUnavailable, e.Attempts, kind, e.Err)
}

// Unwrap exposes both the taxonomy sentinel and the last underlying error.
func (e *EmbeddingError) Unwrap() []error {
	return []error{ErrEmbeddingUnavailable, e.Err}
}

// NewEmbeddingError wraps err as an EmbeddingError.
func NewEmbeddingError(err error, attempts int, permanent bool) *EmbeddingError {
	return &EmbeddingError{Attempts: attempts, Permanent: permanent, Err: err}
}

// IsRetryable reports whether err belongs to a failure class that may succeed
// on a later attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var embErr *EmbeddingError
	if errors.As(err, &embErr) {
		return !embErr.Permanent
	}
	return errors.Is(err, ErrStoreUnavailable)
}
