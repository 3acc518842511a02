package hosted

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/citare/ai"
	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse indicates the API returned no embedding data.
var ErrEmptyResponse = errors.New("no embedding data returned")

// embeddingsClient is the subset of *openai.Client used here.
type embeddingsClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Embedder implements ai.Embedder against the hosted OpenAI embeddings endpoint.
type Embedder struct {
	client     embeddingsClient
	model      openai.EmbeddingModel
	dimensions int
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.Host != "" {
		clientConfig.BaseURL = config.Host
	}

	return newEmbedderWithClient(openai.NewClientWithConfig(clientConfig), config), nil
}

func newEmbedderWithClient(client embeddingsClient, config *ai.Config) *Embedder {
	model := config.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &Embedder{
		client:     client,
		model:      openai.EmbeddingModel(model),
		dimensions: config.Dimensions,
		logger:     slog.Default().With("component", "hosted-embedder"),
	}
}

// NewEmbedder creates a new hosted embedder.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in one request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	}
	// Only the text-embedding-3 family accepts a dimensions override
	if e.model == openai.SmallEmbedding3 || e.model == openai.LargeEmbedding3 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d of %d", ErrEmptyResponse, len(resp.Data), len(texts))
	}

	result := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(result) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		result[data.Index] = data.Embedding
	}
	return result, nil
}

// ModelName returns the embedding model.
func (e *Embedder) ModelName() string {
	return string(e.model)
}
