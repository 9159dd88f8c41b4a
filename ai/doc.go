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

// Package ai provides the embedding abstraction used by the knowledge pipeline.
//
// The Embedder interface turns text into fixed-dimension vectors. Callers
// depend on the interface; the concrete implementations live in
// sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Deterministic test double with injectable failures
//
// # Failure Handling
//
// Embedding calls fail in two ways. Transient failures (timeouts, rate
// limits, 5xx responses) are retried with exponential backoff by
// RetryClassified. Permanent failures (invalid input, authentication,
// exhausted quota) are surfaced immediately. Either way the caller receives
// a *core.EmbeddingError that matches core.ErrEmbeddingUnavailable and wraps
// the last underlying error.
//
// # Caching
//
// CachingEmbedder wraps any Embedder with a bounded content-hash cache so
// identical chunk text is embedded once across documents. Cached and
// uncached results are identical.
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return the ai.Embedder
// interface. Test doubles in ai/mock return concrete types so tests can
// inspect call counts and inject behavior.
package ai
