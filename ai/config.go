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


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProviderKind selects the client used to reach the embedding service.
type ProviderKind string

const (
	// ProviderCompat talks to an OpenAI-compatible host (Ollama, vLLM, LocalAI).
	ProviderCompat ProviderKind = "compat"
	// ProviderOpenAI talks to the hosted OpenAI API.
	ProviderOpenAI ProviderKind = "openai"
)

// DefaultDimensions is the vector width used when none is configured.
const DefaultDimensions = 1536

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the client implementation.
	// Default: ProviderCompat
	Provider ProviderKind

	// Host is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server.
	// Optional for ProviderOpenAI.
	Host string

	// Model is the model identifier to use for text embeddings.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	Model string

	// APIKey authenticates against the service. Required for ProviderOpenAI.
	APIKey string

	// Dimensions is the width of the vectors the model produces. The fallback
	// generator uses the same width so fallback and real vectors stay comparable.
	// Default: 1536
	Dimensions int

	// Timeout bounds a single embedding request. Zero means no limit.
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider kind.
func WithProvider(kind ProviderKind) ConfigOption {
	return func(c *Config) {
		c.Provider = kind
	}
}

// WithHost sets the embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimensions sets the vector width.
func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// DefaultConfig returns a Config with sensible defaults for a local OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Provider:   ProviderCompat,
		Host:       "http://localhost:11434/v1",
		Model:      "text-embedding-3-small",
		Dimensions: DefaultDimensions,
		Timeout:    30 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// For compat hosts it adds the /v1 suffix if missing, which is required
// by most OpenAI-compatible APIs.
func (c *Config) Normalize() {
	if c.Provider == "" {
		c.Provider = ProviderCompat
	}
	if c.Dimensions == 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.Provider == ProviderCompat && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/")
		c.Host = c.Host + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderCompat:
		if c.Host == "" {
			return errors.New("ai config: Host is required")
		}
	case ProviderOpenAI:
		if c.APIKey == "" {
			return errors.New("ai config: APIKey is required for the openai provider")
		}
	default:
		return fmt.Errorf("ai config: unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.Dimensions < 0 {
		return errors.New("ai config: Dimensions must be positive")
	}
	if c.Timeout < 0 {
		return errors.New("ai config: Timeout must not be negative")
	}
	return nil
}
