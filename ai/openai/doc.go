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

// Package openai provides an ai.Embedder backed by OpenAI-compatible APIs.
//
// The embedder uses the langchaingo library to talk to OpenAI or any
// OpenAI-compatible service (such as Ollama, LocalAI, or vLLM). Requests pass
// through a token-bucket rate limiter, carry a per-call timeout and are
// retried with exponential backoff when the failure is transient:
//
//   - Transient: timeouts, network errors, HTTP 408/425/429 and 5xx
//   - Permanent: empty input, authentication, invalid request, exhausted
//     quota, unknown model, dimension drift
//
// Permanent failures are returned after the first attempt. Every failure is
// reported as a *core.EmbeddingError.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithEmbeddingModel("embeddinggemma"),
//	    ai.WithDimensions(768),
//	)
//
//	embedder, err := openai.NewEmbedder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	vector, err := embedder.EmbedText(ctx, "sample text")
package openai
