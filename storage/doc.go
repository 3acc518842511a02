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


// Package storage provides the storage abstraction layer for citare.
//
// This package defines repository interfaces that decouple the job pipeline
// and the search engine from the storage implementation. Repositories are
// injected at construction time; nothing in citare reaches storage through
// package-level state.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces:
//
//	repo, err := badger.NewEmbeddingRepository(backend)  // storage.EmbeddingRepository
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Architecture
//
//   - EmbeddingRepository: content-hash-keyed embedding records with an
//     entity index and bounded paging
//   - JobRepository: embedding jobs, a status index, and an atomic claim
//     queue ordered by priority then schedule time
//
// Both collections live in one BadgerDB instance under distinct key prefixes.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// Use in tests with in-memory storage:
//
//	records, jobs, backend, err := badger.NewMemoryRepositories()
//
// # Paging
//
// EmbeddingRepository.GetPage reads a bounded page (at most MaxPageSize
// records) and filters it afterwards. Callers accept partial corpus
// visibility in exchange for a bounded scan.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
