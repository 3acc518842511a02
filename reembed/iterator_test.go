package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/citare/ai"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
	"github.com/poiesic/citare/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 8

func setupTestDB(t *testing.T) storage.EmbeddingRepository {
	t.Helper()
	records, jobs, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		records.Close()
		jobs.Close()
		backend.Close()
	})
	return records
}

// seed stores n records; every other one is a fallback record.
func seed(t *testing.T, repo storage.EmbeddingRepository, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("rule text %d", i)
		entityID := fmt.Sprintf("r%d", i)
		rec := &core.EmbeddingRecord{
			EntityID:       entityID,
			EntityType:     core.EntityTypeRule,
			ContentHash:    core.ContentHash(core.EntityTypeRule, entityID, 0, content),
			Content:        content,
			TotalChunks:    1,
			Vector:         ai.FallbackVector(content, testDims),
			EmbeddingModel: core.MockModelTag,
			Dimensions:     testDims,
			Metadata:       core.RecordMetadata{ContentLength: len(content), ProcessingMethod: core.ProcessingMethodAuto},
		}
		if i%2 == 1 {
			rec.EmbeddingModel = "real-model"
		}
		require.NoError(t, repo.Upsert(context.Background(), rec))
	}
}

func TestFallbackIterator_Count(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 11)

	total, fallback, err := NewFallbackIterator(repo, 4).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	assert.Equal(t, 6, fallback)
}

func TestFallbackIterator_ForEach(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 11)

	var sizes []int
	seen := map[string]bool{}
	err := NewFallbackIterator(repo, 4).ForEach(context.Background(), func(records []*core.EmbeddingRecord) error {
		sizes = append(sizes, len(records))
		for _, rec := range records {
			assert.True(t, rec.IsFallback())
			assert.False(t, seen[rec.ContentHash])
			seen[rec.ContentHash] = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2}, sizes)
	assert.Len(t, seen, 6)
}

func TestFallbackIterator_Empty(t *testing.T) {
	repo := setupTestDB(t)
	called := false
	err := NewFallbackIterator(repo, 0).ForEach(context.Background(), func([]*core.EmbeddingRecord) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestFallbackIterator_StopsOnError(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 20)

	stop := errors.New("stop")
	calls := 0
	err := NewFallbackIterator(repo, 2).ForEach(context.Background(), func([]*core.EmbeddingRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestFallbackIterator_ContextCanceled(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewFallbackIterator(repo, 10).ForEach(ctx, func([]*core.EmbeddingRecord) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
