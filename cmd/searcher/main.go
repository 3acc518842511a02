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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/citare/config"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/search"
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// traceMonitor prints each search step.
type traceMonitor struct {
	w io.Writer
}

var _ search.SearchMonitor = (*traceMonitor)(nil)

func (m *traceMonitor) Start(filters core.Filters, k int, threshold float32) {
	fmt.Fprintf(m.w, "search: k=%d threshold=%0.2f filters=%+v\n", k, threshold, filters)
}

func (m *traceMonitor) AfterCandidateFetch(scanLimit, candidates int) {
	fmt.Fprintf(m.w, "fetched %d candidates (scan limit %d)\n", candidates, scanLimit)
}

func (m *traceMonitor) AfterScoring(ranked []search.Match) {
	fmt.Fprintf(m.w, "top %d by similarity\n", len(ranked))
	for i, match := range ranked {
		fmt.Fprintf(m.w, "  %d: %s/%s chunk %d [%0.3f]\n", i, match.Record.EntityType, match.Record.EntityID, match.Record.ChunkIndex, match.Similarity)
	}
}

func (m *traceMonitor) Degraded(returned int) {
	fmt.Fprintf(m.w, "degraded: returning %d low-confidence matches\n", returned)
}

func (m *traceMonitor) Finish(result *search.Result) {
	fmt.Fprintf(m.w, "done: %d matches from %d candidates\n", len(result.Matches), result.Candidates)
}

func main() {
	cfg, _, err := config.Resolve("")
	if err != nil {
		panic(err)
	}
	if len(os.Args) > 1 && strings.HasPrefix(os.Args[1], "--db=") {
		cfg.Storage.DBPath = strings.TrimPrefix(os.Args[1], "--db=")
		os.Args = append(os.Args[:1], os.Args[2:]...)
	}

	db, err := cfg.Open(slog.Default())
	if err != nil {
		panic(err)
	}
	defer db.Close()

	query := "personal data breach notification"
	if len(os.Args) > 1 {
		query = strings.Join(os.Args[1:], " ")
	}

	ctx := context.Background()
	resp, err := db.SearchTopKWithMonitor(ctx, query, cfg.Search.DefaultK, cfg.Search.DefaultThreshold, core.Filters{}, &traceMonitor{w: os.Stdout})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d sources\n", len(resp.Sources))
	for i, src := range resp.Sources {
		fmt.Printf("%d: '%s' (%s %s)[%0.3f] %s\n", i, src.Snippet, src.EntityType, src.EntityID, src.Similarity, src.SourceURL)
	}
}
