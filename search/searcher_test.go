package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
	"github.com/poiesic/citare/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSearcher(t *testing.T) (*Searcher, storage.EmbeddingRepository) {
	t.Helper()
	records, jobs, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		records.Close()
		jobs.Close()
		backend.Close()
	})

	s, err := NewSearcher(records)
	require.NoError(t, err)
	return s, records
}

func addRecord(t *testing.T, repo storage.EmbeddingRepository, entityType core.EntityType, entityID, jurisdiction string, vector []float32) *core.EmbeddingRecord {
	t.Helper()
	content := "content of " + entityID
	rec := &core.EmbeddingRecord{
		EntityID:       entityID,
		EntityType:     entityType,
		ContentHash:    core.ContentHash(entityType, entityID, 0, content),
		Content:        content,
		TotalChunks:    1,
		Vector:         vector,
		EmbeddingModel: "test-model",
		Dimensions:     len(vector),
		Metadata: core.RecordMetadata{
			Jurisdiction:     jurisdiction,
			TopicKey:         "data_privacy",
			ContentLength:    len(content),
			ProcessingMethod: core.ProcessingMethodAuto,
		},
	}
	require.NoError(t, repo.Upsert(context.Background(), rec))
	return rec
}

func entityIDs(matches []Match) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Record.EntityID)
	}
	return ids
}

func TestNewSearcher_RequiresRepository(t *testing.T) {
	_, err := NewSearcher(nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "scaled", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 1}, b: []float32{-1, -1}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "both empty", a: []float32{}, b: []float32{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.LessOrEqual(t, got, float32(1))
			assert.GreaterOrEqual(t, got, float32(-1))
		})
	}

	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "2 != 3")
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	for seed := 1; seed <= 20; seed++ {
		v := make([]float32, 64)
		for i := range v {
			v[i] = float32(math.Sin(float64(seed*i + 1)))
		}
		got, err := CosineSimilarity(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1, got, 1e-6)
		assert.LessOrEqual(t, got, float32(1))
	}
}

func TestSearch_RanksAndThresholds(t *testing.T) {
	s, repo := setupSearcher(t)
	ctx := context.Background()

	addRecord(t, repo, core.EntityTypeRule, "exact", "eu", []float32{1, 0, 0})
	addRecord(t, repo, core.EntityTypeRule, "close", "eu", []float32{0.9, 0.1, 0})
	addRecord(t, repo, core.EntityTypeReport, "far", "us", []float32{0, 1, 0})
	addRecord(t, repo, core.EntityTypeReport, "opposite", "us", []float32{-1, 0, 0})

	tests := []struct {
		name      string
		filters   core.Filters
		k         int
		threshold float32
		want      []string
		degraded  bool
	}{
		{name: "threshold drops weak matches", k: 10, threshold: 0.5, want: []string{"exact", "close"}},
		{name: "k limits output", k: 1, threshold: 0, want: []string{"exact"}},
		{name: "negative threshold keeps all", k: 10, threshold: -1, want: []string{"exact", "close", "far", "opposite"}},
		{name: "filters narrow candidates", filters: core.Filters{EntityType: core.EntityTypeReport}, k: 10, threshold: 0.5,
			want: []string{"far", "opposite"}, degraded: true},
		{name: "filter by jurisdiction", filters: core.Filters{Jurisdiction: "eu"}, k: 10, threshold: 0.5, want: []string{"exact", "close"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Search(ctx, []float32{1, 0, 0}, tt.filters, tt.k, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.want, entityIDs(result.Matches))
			assert.Equal(t, tt.degraded, result.Degraded)
			assert.LessOrEqual(t, len(result.Matches), tt.k)

			for i := 1; i < len(result.Matches); i++ {
				assert.GreaterOrEqual(t, result.Matches[i-1].Similarity, result.Matches[i].Similarity)
			}
			for _, m := range result.Matches {
				assert.True(t, tt.filters.Match(m.Record))
				assert.Equal(t, tt.degraded, m.LowConfidence)
			}
		})
	}
}

func TestSearch_DegradesWhenNothingClears(t *testing.T) {
	s, repo := setupSearcher(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		addRecord(t, repo, core.EntityTypeRule, fmt.Sprintf("r%d", i), "eu", []float32{float32(i + 1), 1})
	}

	result, err := s.Search(ctx, []float32{1, 0}, core.Filters{}, 10, 0.9999)
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Len(t, result.Matches, DegradedMax)
	assert.Equal(t, []string{"r5", "r4", "r3"}, entityIDs(result.Matches))
	for _, m := range result.Matches {
		assert.True(t, m.LowConfidence)
	}

	// Degraded output never exceeds k
	result, err = s.Search(ctx, []float32{1, 0}, core.Filters{}, 2, 0.9999)
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Len(t, result.Matches, 2)
}

func TestSearch_EmptyCandidates(t *testing.T) {
	s, repo := setupSearcher(t)
	ctx := context.Background()

	result, err := s.Search(ctx, []float32{1, 0}, core.Filters{}, 5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.False(t, result.Degraded)
	assert.Zero(t, result.Candidates)

	addRecord(t, repo, core.EntityTypeRule, "r1", "eu", []float32{1, 0})
	result, err = s.Search(ctx, []float32{1, 0}, core.Filters{TopicKey: "tax"}, 5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.False(t, result.Degraded)
}

func TestSearch_TiesKeepScanOrder(t *testing.T) {
	s, repo := setupSearcher(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		addRecord(t, repo, core.EntityTypeRule, fmt.Sprintf("tie%d", i), "eu", []float32{1, 1})
	}

	page, err := repo.GetPage(ctx, core.Filters{}, DefaultScanLimit)
	require.NoError(t, err)

	result, err := s.Search(ctx, []float32{1, 1}, core.Filters{}, 8, 0.5)
	require.NoError(t, err)
	require.Len(t, result.Matches, 8)
	for i, m := range result.Matches {
		assert.Equal(t, page[i].ContentHash, m.Record.ContentHash)
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	s, repo := setupSearcher(t)
	addRecord(t, repo, core.EntityTypeRule, "r1", "eu", []float32{1, 0, 0})

	_, err := s.Search(context.Background(), []float32{1, 0}, core.Filters{}, 5, 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_InvalidK(t *testing.T) {
	s, _ := setupSearcher(t)
	_, err := s.Search(context.Background(), []float32{1}, core.Filters{}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestSearch_ScanLimit(t *testing.T) {
	s, repo := setupSearcher(t)
	ctx := context.Background()

	for i := 0; i < DefaultScanLimit+20; i++ {
		addRecord(t, repo, core.EntityTypeRule, fmt.Sprintf("r%03d", i), "eu", []float32{1, float32(i)})
	}

	mon := &recordingMonitor{}
	result, err := s.SearchWithMonitor(ctx, []float32{1, 0}, core.Filters{}, 5, 0, mon)
	require.NoError(t, err)
	assert.Equal(t, DefaultScanLimit, result.Candidates)
	assert.Equal(t, DefaultScanLimit, mon.scanLimit)

	_, err = s.SearchWithMonitor(ctx, []float32{1, 0}, core.Filters{Jurisdiction: "eu"}, 5, 0, mon)
	require.NoError(t, err)
	assert.Equal(t, FilteredScanLimit, mon.scanLimit)
	assert.Equal(t, DefaultScanLimit+20, mon.candidates)
}

type recordingMonitor struct {
	started    bool
	scanLimit  int
	candidates int
	scored     int
	degraded   int
	finished   *Result
}

func (m *recordingMonitor) Start(_ core.Filters, _ int, _ float32) { m.started = true }
func (m *recordingMonitor) AfterCandidateFetch(scanLimit, candidates int) {
	m.scanLimit = scanLimit
	m.candidates = candidates
}
func (m *recordingMonitor) AfterScoring(ranked []Match) { m.scored = len(ranked) }
func (m *recordingMonitor) Degraded(returned int)       { m.degraded = returned }
func (m *recordingMonitor) Finish(result *Result)       { m.finished = result }

func TestSearchWithMonitor(t *testing.T) {
	s, repo := setupSearcher(t)
	addRecord(t, repo, core.EntityTypeRule, "r1", "eu", []float32{0, 1})
	addRecord(t, repo, core.EntityTypeRule, "r2", "eu", []float32{0, -1})

	mon := &recordingMonitor{}
	result, err := s.SearchWithMonitor(context.Background(), []float32{1, 0}, core.Filters{}, 5, 0.5, mon)
	require.NoError(t, err)

	assert.True(t, mon.started)
	assert.Equal(t, 2, mon.candidates)
	assert.Equal(t, 2, mon.scored)
	assert.Equal(t, 2, mon.degraded)
	assert.Same(t, result, mon.finished)
}

type failingRepo struct {
	storage.EmbeddingRepository
}

func (failingRepo) GetPage(context.Context, core.Filters, int) ([]*core.EmbeddingRecord, error) {
	return nil, storage.ErrStorageClosed
}

func TestSearch_StoreError(t *testing.T) {
	s, err := NewSearcher(failingRepo{})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), []float32{1}, core.Filters{}, 3, 0)
	assert.True(t, errors.Is(err, storage.ErrStorageClosed))
}
