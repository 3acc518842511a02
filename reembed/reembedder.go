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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/citare/ai"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
	"golang.org/x/time/rate"
)

// Config holds configuration for a refresh run.
type Config struct {
	// BatchSize is the number of records sent to the provider per call
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per provider call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Pacing is the minimum interval between provider calls. Zero disables it.
	Pacing time.Duration

	// Dimensions is the vector width the store expects. Zero accepts any.
	Dimensions int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Pacing:         200 * time.Millisecond,
	}
}

// Summary describes a finished refresh.
type Summary struct {
	Scanned   int
	Fallback  int
	Refreshed int
	Elapsed   time.Duration
}

// Reembedder replaces fallback embeddings with real ones.
type Reembedder struct {
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *FallbackIterator
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.EmbeddingRepository, embedder ai.Embedder, config *Config, progress io.Writer, logger *slog.Logger) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	if progress == nil {
		progress = io.Discard
	}
	logger = logger.With("component", "reembedder")

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.Pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(config.Pacing), 1)
	}

	return &Reembedder{
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, limiter, config.Dimensions, config.MaxRetries, config.RetryDelay, logger),
		iterator:  NewFallbackIterator(repo, config.BatchSize),
		logger:    logger,
	}, nil
}

// Run re-embeds every fallback record. A batch that still fails after its
// retries stops the run; records already refreshed stay refreshed and the
// rest keep their fallback tag for the next run.
func (r *Reembedder) Run(ctx context.Context) (*Summary, error) {
	scanned, fallback, err := r.iterator.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	summary := &Summary{Scanned: scanned, Fallback: fallback}
	if fallback == 0 {
		fmt.Fprintf(r.progress, "No fallback embeddings found (%d records scanned)\n", scanned)
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Refreshing %d of %d records tagged %s (batch size: %d)\n",
		fallback, scanned, core.MockModelTag, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, fallback, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, func(records []*core.EmbeddingRecord) error {
		if err := r.processor.Process(ctx, records); err != nil {
			tracker.Add(0, len(records))
			return fmt.Errorf("failed to process batch: %w", err)
		}
		summary.Refreshed += len(records)
		tracker.Add(len(records), 0)
		return nil
	})
	tracker.Finish()
	summary.Elapsed = tracker.Elapsed()

	if err != nil {
		r.logger.Error("refresh stopped", "refreshed", summary.Refreshed, "remaining", fallback-summary.Refreshed, "err", err)
		return summary, err
	}

	fmt.Fprintf(r.progress, "Refresh complete. Re-embedded %d records in %v\n",
		summary.Refreshed, summary.Elapsed.Round(time.Millisecond))
	r.logger.Info("refresh complete", "refreshed", summary.Refreshed)
	return summary, nil
}
