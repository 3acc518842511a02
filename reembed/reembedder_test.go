package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/citare/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		BatchSize:      3,
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		Dimensions:     testDims,
	}
}

func TestNewReembedder_Validation(t *testing.T) {
	repo := setupTestDB(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewReembedder(nil, embedder, nil, nil, nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewReembedder(repo, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewReembedder(repo, embedder, &Config{MaxRetries: 0}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	r, err := NewReembedder(repo, embedder, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, r.iterator.batchSize)
}

func TestReembedder_Run(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 20)

	var out bytes.Buffer
	embedder := mock.NewMockEmbedderWithDimensions(testDims)
	r, err := NewReembedder(repo, embedder, testConfig(), &out, nil)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Scanned)
	assert.Equal(t, 10, summary.Fallback)
	assert.Equal(t, 10, summary.Refreshed)
	assert.Equal(t, 4, embedder.CallCount()) // batches of 3,3,3,1

	assert.Empty(t, fallbackRecords(t, repo))
	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, count)

	assert.Contains(t, out.String(), "Refreshing 10 of 20")
	assert.Contains(t, out.String(), "10/10")
	assert.Contains(t, out.String(), "Refresh complete")

	// A second run finds nothing to do
	out.Reset()
	summary, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Fallback)
	assert.Contains(t, out.String(), "No fallback embeddings found")
}

func TestReembedder_StopsOnFailedBatch(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 20)

	embedder := mock.NewMockEmbedderWithDimensions(testDims)
	batches := 0
	errDown := errors.New("provider down")
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		batches++
		if batches > 1 {
			return nil, errDown
		}
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = make([]float32, testDims)
			out[i][0] = 1
		}
		return out, nil
	}

	var out bytes.Buffer
	r, err := NewReembedder(repo, embedder, testConfig(), &out, nil)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	assert.ErrorIs(t, err, errDown)
	require.NotNil(t, summary)
	assert.Equal(t, 3, summary.Refreshed)
	assert.Len(t, fallbackRecords(t, repo), 7)
	assert.Contains(t, out.String(), "3 failed")
}
