package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/citare/ai"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
	"golang.org/x/time/rate"
)

// BatchProcessor re-embeds batches of records with a real provider.
type BatchProcessor struct {
	repo           storage.EmbeddingRepository
	embedder       ai.Embedder
	limiter        *rate.Limiter
	dimensions     int
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// dimensions: required vector width, or 0 to accept whatever the provider returns
// maxRetries: maximum number of attempts per provider call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.EmbeddingRepository, embedder ai.Embedder, limiter *rate.Limiter, dimensions, maxRetries int, retryBaseDelay time.Duration, logger *slog.Logger) *BatchProcessor {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		limiter:        limiter,
		dimensions:     dimensions,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
	}
}

// Process embeds the content of every record and upserts the new vectors in
// place. Records are only written once the whole batch has valid vectors.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, bp.logger, bp.maxRetries, bp.retryBaseDelay, func(ctx context.Context) error {
		if err := bp.limiter.Wait(ctx); err != nil {
			return Permanent(err)
		}
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(vectors) != len(records) {
		return fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, len(records), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) == 0 || (bp.dimensions > 0 && len(vec) != bp.dimensions) {
			return fmt.Errorf("%w: record %s got %d, want %d", ErrUnexpectedDimensions, records[i].ContentHash, len(vec), bp.dimensions)
		}
	}

	model := bp.embedder.ModelName()
	updated := make([]*core.EmbeddingRecord, len(records))
	for i, record := range records {
		rec := *record
		rec.Vector = vectors[i]
		rec.Dimensions = len(vectors[i])
		rec.EmbeddingModel = model
		updated[i] = &rec
	}

	if err := bp.repo.Upsert(ctx, updated...); err != nil {
		return fmt.Errorf("failed to update records: %w", err)
	}
	return nil
}
