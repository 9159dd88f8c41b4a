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

package reembed

import (
	"context"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
)

const (
	// DefaultBatchSize is the default number of documents per ingestion batch
	DefaultBatchSize = 50
)

// DocumentIterator walks a project's documents in batches of ids.
type DocumentIterator struct {
	store     storage.DocumentStore
	batchSize int
}

// NewDocumentIterator creates a new document iterator.
// batchSize: number of documents per batch (defaults when <= 0)
func NewDocumentIterator(store storage.DocumentStore, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &DocumentIterator{
		store:     store,
		batchSize: batchSize,
	}
}

// Plan lists the project's documents and separates those that can be
// re-ingested from those skipped because another run is processing them.
func (it *DocumentIterator) Plan(ctx context.Context, projectID uuid.UUID) (ids, skipped []uuid.UUID, err error) {
	docs, err := it.store.ListDocuments(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	for _, doc := range docs {
		if doc.Status == core.StatusProcessing {
			skipped = append(skipped, doc.ID)
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, skipped, nil
}

// ForEach calls fn for consecutive batches of ids.
// Iteration stops on first error from fn. Context cancellation is checked
// before every batch.
func (it *DocumentIterator) ForEach(ctx context.Context, ids []uuid.UUID, fn func([]uuid.UUID) error) error {
	for i := 0; i < len(ids); i += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(i+it.batchSize, len(ids))
		if err := fn(ids[i:end]); err != nil {
			return err
		}
	}
	return nil
}
