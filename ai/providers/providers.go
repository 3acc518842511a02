// Package providers builds an ai.AIProvider from an ai.Config.
package providers

import (
	"fmt"

	"github.com/poiesic/citare/ai"
	"github.com/poiesic/citare/ai/hosted"
	"github.com/poiesic/citare/ai/openai"
)

// New returns the provider selected by cfg.Provider.
func New(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderCompat:
		return openai.NewProvider(cfg)
	case ai.ProviderOpenAI:
		return hosted.NewProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
