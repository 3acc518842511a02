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

// Package search ranks stored embeddings against a query vector.
//
// The Searcher reads one bounded page of candidates from the embedding store
// (100 records, or 200 when metadata filters are given), scores them with
// cosine similarity and keeps the top k that clear the threshold. When none
// do, it returns the best few anyway and flags the result as degraded, since
// similarity ranges are not calibrated across embedding models. Callers
// should read a degraded or empty result as "no confident match", not as a
// failure.
package search
