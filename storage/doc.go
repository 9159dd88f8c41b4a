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

// Package storage provides the storage abstraction layer for the knowledge pipeline.
//
// This package defines the contracts that decouple persistence from the
// ingestion and retrieval logic. Two backends implement them:
//
//   - storage/badger: embedded store with a brute-force cosine scan. Runs
//     in-memory for tests and on disk for single-node deployments.
//   - storage/postgres: PostgreSQL with the pgvector extension, for production.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the storage.Store interface
// to enforce abstraction:
//
//	store, err := badger.NewStore(path, dims) // returns storage.Store
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Architecture
//
//   - DocumentStore: document records and their ingestion status
//   - VectorStore: per-document chunk sets and project-scoped similarity search
//   - Store: both of the above plus io.Closer
//
// # Chunk Replacement
//
// ReplaceChunks swaps a document's whole chunk set in one unit of work.
// Either every new chunk is visible and every old one is gone, or nothing
// changed. Vectors are validated against Dimensions before anything is
// written, so a mismatched vector never leaves a partial set behind.
//
// # Ranking
//
// SimilaritySearch orders results by cosine similarity descending. Ties go
// to the most recently created chunk, then to document id and chunk index so
// results are stable across backends. See RankScored.
//
// # Thread Safety
//
// All store implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
