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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/knowledge/ai"
	"github.com/poiesic/knowledge/chunker"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
)

// processor turns one claimed document into a persisted chunk set.
type processor interface {
	// process chunks, embeds and stores the document's content, returning
	// the number of chunks persisted. Nothing is persisted on error.
	process(ctx context.Context, doc *core.Document) (int, error)
}

// chunkProcessor is the chunk → embed → replace sequence for one document.
type chunkProcessor struct {
	store      storage.VectorStore
	embedder   ai.Embedder
	chunker    *chunker.Chunker
	batchSize  int
	retryCount int
	retryDelay time.Duration
	logger     *slog.Logger
}

var _ processor = (*chunkProcessor)(nil)

func newChunkProcessor(p *Pipeline) *chunkProcessor {
	return &chunkProcessor{
		store:      p.store,
		embedder:   p.embedder,
		chunker:    p.chunker,
		batchSize:  p.embedBatchSize,
		retryCount: p.storeAttempts,
		retryDelay: p.storeDelay,
		logger:     p.logger.With("processor", "chunks"),
	}
}

func (cp *chunkProcessor) process(ctx context.Context, doc *core.Document) (int, error) {
	texts := cp.chunker.Chunk(doc.Content)
	cp.logger.Debug("document chunked", "document_id", doc.ID, "chunks", len(texts))

	vectors, err := cp.embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	inputs := make([]storage.ChunkInput, len(texts))
	for i, text := range texts {
		inputs[i] = storage.ChunkInput{Text: text, Vector: vectors[i]}
	}

	var stored []core.Chunk
	err = storage.WithRetry(ctx, cp.retryCount, cp.retryDelay, func() error {
		var replaceErr error
		stored, replaceErr = cp.store.ReplaceChunks(ctx, doc.ID, inputs)
		return replaceErr
	})
	if err != nil {
		return 0, fmt.Errorf("replace chunks: %w", err)
	}
	return len(stored), nil
}

// embed embeds texts in order, batchSize texts per call. The first failure
// ends the run.
func (cp *chunkProcessor) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += cp.batchSize {
		end := min(start+cp.batchSize, len(texts))

		batch, err := cp.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingCount, end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
