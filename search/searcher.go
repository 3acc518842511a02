package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
)

// Candidate scan limits. The store has no metadata index, so a filtered
// search reads a wider page and filters it client-side.
const (
	DefaultScanLimit  = 100
	FilteredScanLimit = 200
	// DegradedMax is the most matches returned when nothing clears the threshold.
	DegradedMax = 3
)

// Match is one ranked record.
type Match struct {
	Record     *core.EmbeddingRecord
	Similarity float32
	// LowConfidence is set on every match of a degraded result.
	LowConfidence bool
}

// Result is the outcome of a search.
type Result struct {
	Matches []Match
	// Degraded is set when no candidate cleared the threshold and the best
	// candidates were returned anyway.
	Degraded bool
	// Candidates is the number of records scored.
	Candidates int
}

// Searcher ranks stored embeddings by cosine similarity to a query vector.
type Searcher struct {
	records storage.EmbeddingRepository
	logger  *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(records storage.EmbeddingRepository, opts ...Option) (*Searcher, error) {
	if records == nil {
		return nil, ErrRepositoryRequired
	}

	s := &Searcher{
		records: records,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Search returns at most k matches for query, best first.
func (s *Searcher) Search(ctx context.Context, query []float32, filters core.Filters, k int, threshold float32) (*Result, error) {
	return s.SearchWithMonitor(ctx, query, filters, k, threshold, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
//
// Candidates are one bounded page of the store. They are scored, stable
// sorted by similarity (ties keep scan order) and cut to k. Matches below
// threshold are dropped; if that leaves nothing, the top min(3, k) are
// returned with Degraded set. An empty candidate set is not an error.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query []float32, filters core.Filters, k int, threshold float32, monitor SearchMonitor) (*Result, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(filters, k, threshold)

	scanLimit := DefaultScanLimit
	if !filters.IsEmpty() {
		scanLimit = FilteredScanLimit
	}

	candidates, err := s.records.GetPage(ctx, filters, scanLimit)
	if err != nil {
		s.logger.Error("error fetching candidates", "err", err)
		return nil, err
	}
	monitor.AfterCandidateFetch(scanLimit, len(candidates))

	result := &Result{Matches: []Match{}, Candidates: len(candidates)}
	if len(candidates) == 0 {
		monitor.Finish(result)
		return result, nil
	}

	ranked := make([]Match, 0, len(candidates))
	for _, record := range candidates {
		sim, err := CosineSimilarity(query, record.Vector)
		if err != nil {
			s.logger.Error("corrupt or mixed-width embedding", "hash", record.ContentHash, "entity", record.EntityID, "err", err)
			return nil, fmt.Errorf("record %s: %w", record.ContentHash, err)
		}
		ranked = append(ranked, Match{Record: record, Similarity: sim})
	}

	slices.SortStableFunc(ranked, func(a, b Match) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	monitor.AfterScoring(ranked)

	for _, m := range ranked {
		if m.Similarity >= threshold {
			result.Matches = append(result.Matches, m)
		}
	}

	if len(result.Matches) == 0 {
		n := min(DegradedMax, k, len(ranked))
		for _, m := range ranked[:n] {
			m.LowConfidence = true
			result.Matches = append(result.Matches, m)
		}
		result.Degraded = true
		monitor.Degraded(n)
		s.logger.Debug("no match cleared threshold, returning best effort", "threshold", threshold, "returned", n)
	}

	monitor.Finish(result)
	return result, nil
}
