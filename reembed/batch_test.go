package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/citare/ai/mock"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fallbackRecords(t *testing.T, repo storage.EmbeddingRepository) []*core.EmbeddingRecord {
	t.Helper()
	var out []*core.EmbeddingRecord
	require.NoError(t, repo.ForEach(context.Background(), 100, func(batch []*core.EmbeddingRecord) error {
		for _, rec := range batch {
			if rec.IsFallback() {
				out = append(out, rec)
			}
		}
		return nil
	}))
	return out
}

func TestBatchProcessor_Process(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 4)
	ctx := context.Background()

	records := fallbackRecords(t, repo)
	require.Len(t, records, 2)

	embedder := mock.NewMockEmbedderWithDimensions(testDims)
	processor := NewBatchProcessor(repo, embedder, nil, testDims, 3, time.Millisecond, nil)
	require.NoError(t, processor.Process(ctx, records))

	for _, rec := range records {
		stored, err := repo.GetByHash(ctx, rec.ContentHash)
		require.NoError(t, err)
		assert.Equal(t, mock.DefaultModelName, stored.EmbeddingModel)
		assert.Equal(t, testDims, stored.Dimensions)
		assert.NotEqual(t, rec.Vector, stored.Vector)
		assert.Equal(t, rec.Content, stored.Content)
		assert.True(t, stored.CreatedAt.Equal(rec.CreatedAt))
	}
	assert.Empty(t, fallbackRecords(t, repo))

	// Input records are not mutated
	assert.Equal(t, core.MockModelTag, records[0].EmbeddingModel)
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo := setupTestDB(t)
	embedder := mock.NewMockEmbedder()
	processor := NewBatchProcessor(repo, embedder, nil, 0, 3, time.Millisecond, nil)

	require.NoError(t, processor.Process(context.Background(), nil))
	assert.Zero(t, embedder.CallCount())
}

func TestBatchProcessor_Failures(t *testing.T) {
	errDown := errors.New("provider down")

	tests := []struct {
		name      string
		embed     func(context.Context, []string) ([][]float32, error)
		dims      int
		wantErr   error
		wantCalls int
	}{
		{
			name:      "provider keeps failing",
			embed:     func(context.Context, []string) ([][]float32, error) { return nil, errDown },
			dims:      testDims,
			wantErr:   errDown,
			wantCalls: 3,
		},
		{
			name: "count mismatch",
			embed: func(context.Context, []string) ([][]float32, error) {
				return [][]float32{make([]float32, testDims)}, nil
			},
			dims:      testDims,
			wantErr:   ErrCountMismatch,
			wantCalls: 1,
		},
		{
			name: "wrong width",
			embed: func(_ context.Context, texts []string) ([][]float32, error) {
				out := make([][]float32, len(texts))
				for i := range out {
					out[i] = make([]float32, testDims+1)
				}
				return out, nil
			},
			dims:      testDims,
			wantErr:   ErrUnexpectedDimensions,
			wantCalls: 1,
		},
		{
			name: "empty vector",
			embed: func(_ context.Context, texts []string) ([][]float32, error) {
				return make([][]float32, len(texts)), nil
			},
			wantErr:   ErrUnexpectedDimensions,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := setupTestDB(t)
			seed(t, repo, 4)
			records := fallbackRecords(t, repo)

			calls := 0
			embedder := mock.NewMockEmbedderWithDimensions(testDims)
			embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
				calls++
				return tt.embed(ctx, texts)
			}

			processor := NewBatchProcessor(repo, embedder, nil, tt.dims, 3, time.Millisecond, nil)
			err := processor.Process(context.Background(), records)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, calls)

			// Nothing written
			assert.Len(t, fallbackRecords(t, repo), 2)
		})
	}
}
