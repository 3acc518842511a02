package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/citare/ai"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
	"golang.org/x/time/rate"
)

// embeddingProcessor resolves, chunks, embeds and stores entities.
type embeddingProcessor struct {
	records   storage.EmbeddingRepository
	source    ContentSource
	generator *ai.Generator
	limiter   *rate.Limiter
	chunkSize int
	logger    *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(
	records storage.EmbeddingRepository,
	source ContentSource,
	generator *ai.Generator,
	limiter *rate.Limiter,
	chunkSize int,
	logger *slog.Logger,
) (*embeddingProcessor, error) {
	if records == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if source == nil {
		return nil, ErrContentSourceRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		records:   records,
		source:    source,
		generator: generator,
		limiter:   limiter,
		chunkSize: chunkSize,
		logger:    logger.With("processor", "embeddings"),
	}, nil
}

func (ep *embeddingProcessor) process(ctx context.Context, entityID string) error {
	content, err := ep.source.Resolve(ctx, entityID)
	if err != nil {
		return fmt.Errorf("resolve content: %w", err)
	}
	if strings.TrimSpace(content.Content) == "" {
		return ErrEmptyContent
	}
	if err := core.ValidateEntityType(content.EntityType); err != nil {
		return err
	}

	chunks := Chunk(content.Content, ep.chunkSize)
	records := make([]*core.EmbeddingRecord, 0, len(chunks))
	fallbacks := 0
	for _, chunk := range chunks {
		// The fallback path makes no network call
		if ep.generator.HasProvider() {
			if err := ep.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		emb := ep.generator.Generate(ctx, chunk.Text)
		if emb.Fallback {
			fallbacks++
		}
		records = append(records, &core.EmbeddingRecord{
			EntityID:       entityID,
			EntityType:     content.EntityType,
			ContentHash:    core.ContentHash(content.EntityType, entityID, chunk.Index, chunk.Text),
			Content:        chunk.Text,
			ChunkIndex:     chunk.Index,
			TotalChunks:    chunk.Total,
			Vector:         emb.Vector,
			EmbeddingModel: emb.Model,
			Dimensions:     emb.Dimensions,
			Metadata: core.RecordMetadata{
				Jurisdiction:     content.Jurisdiction,
				TopicKey:         content.TopicKey,
				ContentLength:    len(chunk.Text),
				ProcessingMethod: core.ProcessingMethodAuto,
			},
		})
	}

	// Chunks from an earlier version of the content are dropped with the write
	removed, err := ep.records.ReplaceEntity(ctx, entityID, records...)
	if err != nil {
		if errors.Is(err, core.ErrInvalidRecord) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	ep.logger.Debug("embedded entity", "entity", entityID, "chunks", len(records), "fallbacks", fallbacks, "removed", removed)
	return nil
}

// isFatal reports whether err should abort the whole job rather than be
// recorded against one entity.
func isFatal(ctx context.Context, err error) bool {
	return errors.Is(err, ErrStoreFailure) || ctx.Err() != nil
}
