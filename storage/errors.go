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

package storage

import (
	"errors"
	"fmt"

	"github.com/poiesic/knowledge/core"
)

// Store-level members of the core failure taxonomy, re-exported so callers of
// a repository do not need to import core for error matching.
var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = core.ErrNotFound

	// ErrDimensionMismatch indicates a vector of the wrong length.
	ErrDimensionMismatch = core.ErrDimensionMismatch

	// ErrStoreUnavailable indicates a persistence or query failure.
	ErrStoreUnavailable = core.ErrStoreUnavailable

	// ErrInvalidLimit indicates a non-positive search limit.
	ErrInvalidLimit = core.ErrInvalidLimit
)

var (
	// ErrStorageClosed indicates that the storage backend is closed.
	// It matches ErrStoreUnavailable but is not transient.
	ErrStorageClosed = fmt.Errorf("%w: storage is closed", core.ErrStoreUnavailable)

	// ErrNonFiniteVector indicates a vector with a NaN or infinite component.
	// Such a vector has no defined similarity, so it matches
	// ErrDimensionMismatch as an unusable vector.
	ErrNonFiniteVector = fmt.Errorf("%w: non-finite component", core.ErrDimensionMismatch)

	// ErrInvalidDimensions indicates a store opened with a non-positive
	// vector length.
	ErrInvalidDimensions = errors.New("vector dimensions must be positive")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
