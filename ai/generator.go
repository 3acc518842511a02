package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/citare/core"
)

// Embedding is the output of a Generator call.
type Embedding struct {
	Vector     []float32
	Model      string
	Dimensions int
	// Fallback is set when Vector came from FallbackVector.
	Fallback bool
}

// Generator turns text into embeddings. It prefers the configured Embedder
// and falls back to FallbackVector when the provider errors, returns a vector
// that is empty or of the wrong width, or was never configured. Every
// embedding it returns has the configured width. It never returns an error.
type Generator struct {
	embedder   Embedder
	dimensions int
	timeout    time.Duration
	logger     *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator) error

// WithEmbedder sets the primary embedding provider. A nil embedder means
// every call takes the fallback path.
func WithEmbedder(embedder Embedder) GeneratorOption {
	return func(g *Generator) error {
		g.embedder = embedder
		return nil
	}
}

// WithVectorDimensions sets the vector width every embedding must have.
func WithVectorDimensions(dims int) GeneratorOption {
	return func(g *Generator) error {
		if dims <= 0 {
			return errors.New("dimensions must be positive")
		}
		g.dimensions = dims
		return nil
	}
}

// WithProviderTimeout bounds each provider call. Zero disables the bound.
func WithProviderTimeout(timeout time.Duration) GeneratorOption {
	return func(g *Generator) error {
		g.timeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...GeneratorOption) (*Generator, error) {
	g := &Generator{
		dimensions: DefaultDimensions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	g.logger = g.logger.With("component", "generator")
	return g, nil
}

// Dimensions returns the vector width.
func (g *Generator) Dimensions() int {
	return g.dimensions
}

// HasProvider reports whether a primary embedder is configured.
func (g *Generator) HasProvider() bool {
	return g.embedder != nil
}

// Generate embeds document content.
func (g *Generator) Generate(ctx context.Context, content string) Embedding {
	return g.generate(ctx, content, "content")
}

// GenerateQuery embeds a search query under the same contract as Generate,
// so a fallback query vector compares against fallback records.
func (g *Generator) GenerateQuery(ctx context.Context, query string) Embedding {
	return g.generate(ctx, query, "query")
}

func (g *Generator) generate(ctx context.Context, text, kind string) Embedding {
	if g.embedder == nil {
		return g.fallback(text)
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vector, err := g.embedder.EmbedText(callCtx, text)
	if err != nil {
		g.logger.Warn("embedding provider failed, using fallback", "kind", kind, "err", err)
		return g.fallback(text)
	}
	if len(vector) == 0 {
		g.logger.Warn("embedding provider returned empty vector, using fallback", "kind", kind)
		return g.fallback(text)
	}
	if len(vector) != g.dimensions {
		g.logger.Warn("provider vector width differs from configured dimensions, using fallback",
			"kind", kind, "got", len(vector), "configured", g.dimensions)
		return g.fallback(text)
	}

	return Embedding{
		Vector:     vector,
		Model:      g.embedder.ModelName(),
		Dimensions: len(vector),
	}
}

func (g *Generator) fallback(text string) Embedding {
	return Embedding{
		Vector:     FallbackVector(text, g.dimensions),
		Model:      core.MockModelTag,
		Dimensions: g.dimensions,
		Fallback:   true,
	}
}
