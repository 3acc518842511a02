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

	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
)

const (
	// DefaultBatchSize is the default number of records sent to the provider at once
	DefaultBatchSize = 50
)

// FallbackIterator walks the store and yields only records embedded by the
// fallback generator.
type FallbackIterator struct {
	repo      storage.EmbeddingRepository
	batchSize int
}

// NewFallbackIterator creates a new iterator.
// batchSize: number of fallback records per callback (defaults when <= 0)
func NewFallbackIterator(repo storage.EmbeddingRepository, batchSize int) *FallbackIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &FallbackIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// Count returns the number of stored records and how many are fallback.
func (it *FallbackIterator) Count(ctx context.Context) (total, fallback int, err error) {
	err = it.repo.ForEach(ctx, storage.MaxPageSize, func(records []*core.EmbeddingRecord) error {
		total += len(records)
		for _, rec := range records {
			if rec.IsFallback() {
				fallback++
			}
		}
		return nil
	})
	return total, fallback, err
}

// ForEach calls fn with batches of at most batchSize fallback records.
// Iteration stops on the first error from fn.
func (it *FallbackIterator) ForEach(ctx context.Context, fn func([]*core.EmbeddingRecord) error) error {
	pending := make([]*core.EmbeddingRecord, 0, it.batchSize)

	err := it.repo.ForEach(ctx, storage.MaxPageSize, func(records []*core.EmbeddingRecord) error {
		for _, rec := range records {
			if !rec.IsFallback() {
				continue
			}
			pending = append(pending, rec)
			if len(pending) == it.batchSize {
				if err := fn(pending); err != nil {
					return err
				}
				pending = make([]*core.EmbeddingRecord, 0, it.batchSize)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(pending)
	}
	return nil
}
