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

// Package knowledge wires the retrieval-augmented knowledge pipeline
// together: a vector store, an embedding client, the ingestion pipeline and
// the retrieval service, all built from one finalized configuration and
// released together by Close.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/knowledge/ai"
	"github.com/poiesic/knowledge/ai/openai"
	"github.com/poiesic/knowledge/config"
	"github.com/poiesic/knowledge/ingestion"
	"github.com/poiesic/knowledge/search"
	"github.com/poiesic/knowledge/storage"
	"github.com/poiesic/knowledge/storage/badger"
	"github.com/poiesic/knowledge/storage/postgres"
)

// Database owns the store handle and every component built on it.
type Database struct {
	store    storage.Store
	embedder ai.Embedder
	cache    *ai.CachingEmbedder
	pipeline *ingestion.Pipeline
	searcher *search.Searcher
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	logger   *slog.Logger
	embedder ai.Embedder
	store    storage.Store
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// WithEmbedder replaces the configured embedding service client.
func WithEmbedder(embedder ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = embedder
	}
}

// WithStore replaces the configured store. The Database takes ownership and
// closes it.
func WithStore(store storage.Store) DatabaseOption {
	return func(o *databaseOptions) {
		o.store = store
	}
}

// Open builds a Database from a finalized configuration.
func Open(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	store := options.store
	if store == nil {
		var err error
		store, err = OpenStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	db := &Database{store: store, logger: logger.With("component", "knowledge")}

	embedder := options.embedder
	if embedder == nil {
		aiConfig := cfg.Embedding.AIConfig(cfg.Store.Dimensions)
		client, err := openai.NewEmbedder(aiConfig)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("embedding client: %w", err)
		}
		embedder = client

		if aiConfig.CacheSize > 0 {
			cache, err := ai.NewCachingEmbedder(client, aiConfig.EmbeddingModel, aiConfig.CacheSize)
			if err != nil {
				db.Close()
				return nil, fmt.Errorf("embedding cache: %w", err)
			}
			db.cache = cache
			embedder = cache
		}
	}
	if d := embedder.Dimensions(); d != 0 && d != store.Dimensions() {
		db.Close()
		return nil, fmt.Errorf("%w: embedder produces %d-dimensional vectors, store holds %d",
			storage.ErrDimensionMismatch, d, store.Dimensions())
	}
	db.embedder = embedder

	chunks, err := cfg.Chunker.Chunker()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("chunker: %w", err)
	}

	db.pipeline, err = ingestion.NewPipeline(store, embedder,
		ingestion.WithLogger(logger),
		ingestion.WithChunker(chunks),
		ingestion.WithPoolSize(cfg.Ingestion.PoolSize),
		ingestion.WithDocumentTimeout(cfg.Ingestion.DocumentTimeoutDuration()),
		ingestion.WithEmbedBatchSize(cfg.Ingestion.EmbedBatchSize),
		ingestion.WithStoreRetry(cfg.Ingestion.StoreRetryAttempts, cfg.Ingestion.StoreRetryDelayDuration()),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ingestion pipeline: %w", err)
	}

	db.searcher, err = search.NewSearcher(store, embedder,
		search.WithLogger(logger),
		search.WithDefaultLimit(cfg.Retrieval.DefaultK),
		search.WithMaxLimit(cfg.Retrieval.MaxK),
		search.WithQueryTimeout(cfg.Retrieval.QueryTimeoutDuration()),
		search.WithStoreRetry(cfg.Ingestion.StoreRetryAttempts, cfg.Ingestion.StoreRetryDelayDuration()),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("searcher: %w", err)
	}

	db.logger.Info("knowledge database open",
		"backend", cfg.Store.Backend, "dimensions", store.Dimensions(), "cache", db.cache != nil)
	return db, nil
}

// OpenStore opens the store backend selected by the configuration.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pg := cfg.Postgres
		return postgres.Open(ctx, pg.Dsn(), cfg.Store.Dimensions,
			postgres.WithLogger(logger),
			postgres.WithPool(pg.MaxOpenConns, pg.MaxIdleConns, pg.ConnMaxLifetimeDuration()),
			postgres.WithConnTimeout(pg.ConnTimeoutDuration()),
			postgres.WithQueryTimeout(cfg.Retrieval.QueryTimeoutDuration()),
		)
	case config.BackendBadger, "":
		if cfg.Badger.InMemory {
			return badger.NewMemoryStore(cfg.Store.Dimensions, badger.WithLogger(logger))
		}
		return badger.NewStore(cfg.Badger.Path, cfg.Store.Dimensions, badger.WithLogger(logger))
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// Close releases the pipeline, the embedding cache and the store.
func (db *Database) Close() error {
	if db.pipeline != nil {
		db.pipeline.Release()
	}
	if db.cache != nil {
		hits, misses := db.cache.Stats()
		db.logger.Debug("embedding cache closed", "hits", hits, "misses", misses)
		db.cache.Close()
	}

	var err error
	if db.store != nil {
		if closeErr := db.store.Close(); closeErr != nil {
			db.logger.Error("error closing store", "err", closeErr)
			err = errors.Join(err, closeErr)
		}
	}
	return err
}

// Store returns the document and vector store.
func (db *Database) Store() storage.Store {
	return db.store
}

// Embedder returns the embedding client, wrapped by the cache when enabled.
func (db *Database) Embedder() ai.Embedder {
	return db.embedder
}

// Pipeline returns the ingestion pipeline.
func (db *Database) Pipeline() *ingestion.Pipeline {
	return db.pipeline
}

// Searcher returns the retrieval service.
func (db *Database) Searcher() *search.Searcher {
	return db.searcher
}
