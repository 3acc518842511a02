package search

import "github.com/poiesic/citare/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(filters core.Filters, k int, threshold float32)
	AfterCandidateFetch(scanLimit, candidates int)
	AfterScoring(ranked []Match)
	Degraded(returned int)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Filters, _ int, _ float32) {}
func (n *noopMonitor) AfterCandidateFetch(_, _ int) {}
func (n *noopMonitor) AfterScoring(_ []Match) {}
func (n *noopMonitor) Degraded(_ int) {}
func (n *noopMonitor) Finish(_ *Result) {}
