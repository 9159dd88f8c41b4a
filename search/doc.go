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

// Package search answers similarity queries against a project's chunks.
//
// A Searcher embeds the query text and delegates ranking to the vector
// store, which scores only chunks owned by the requested project. Results
// are ordered by similarity, most similar first, ties going to the most
// recently created chunk.
//
// An empty project yields an empty result. Failures are always returned as
// errors, so callers can tell "nothing relevant" from "could not search".
package search
