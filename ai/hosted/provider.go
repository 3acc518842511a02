package hosted

import (
	"log/slog"

	"github.com/poiesic/citare/ai"
)

// Provider implements ai.AIProvider for the hosted OpenAI API.
type Provider struct {
	embedder *Embedder
	logger   *slog.Logger
}

// NewProvider creates a provider backed by the hosted OpenAI API.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	return &Provider{
		embedder: embedder,
		logger:   slog.Default().With("component", "hosted-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (p *Provider) Close() error {
	p.logger.Debug("closing hosted provider")
	return nil
}
