package config

import (
	"log/slog"
	"os"

	"github.com/poiesic/citare"
	"github.com/poiesic/citare/ai"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/hydrate"
	"github.com/poiesic/citare/ingestion"
)

// ProviderConfig builds the embedding provider configuration. The API key
// is read from the environment variable named by ai.api_key_env.
func (c *Config) ProviderConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.ProviderKind(c.AI.Provider)),
		ai.WithHost(c.AI.Host),
		ai.WithModel(c.AI.Model),
		ai.WithAPIKey(os.Getenv(c.AI.APIKeyEnv)),
		ai.WithDimensions(c.AI.Dimensions),
		ai.WithTimeout(c.AI.Timeout),
	)
}

// DatabaseOptions translates the config into options for citare.NewDatabase.
func (c *Config) DatabaseOptions(logger *slog.Logger) []citare.DatabaseOption {
	opts := []citare.DatabaseOption{
		citare.WithLogger(logger),
		citare.WithAIConfig(c.ProviderConfig()),
		citare.WithCatalogPath(c.Catalog.Path),
		citare.WithManagerOptions(
			ingestion.WithMaxJobsPerRun(c.Jobs.MaxJobsPerRun),
			ingestion.WithPacing(c.Jobs.Pacing),
			ingestion.WithRetryBaseDelay(c.Jobs.RetryBaseDelay),
			ingestion.WithChunkSize(c.Jobs.ChunkSize),
		),
		citare.WithHydratorOptions(
			hydrate.WithPoolSize(c.Hydrate.Workers),
			hydrate.WithBaseURL(c.Hydrate.SourceBaseURL),
		),
	}
	if c.AI.Disabled {
		opts = append(opts, citare.WithoutProvider())
	}
	return opts
}

// JobConfig returns the per-job settings for new submissions.
func (c *Config) JobConfig(priority core.Priority) *core.JobConfig {
	return &core.JobConfig{
		BatchSize:  c.Jobs.BatchSize,
		RetryCount: c.Jobs.RetryCount,
		Priority:   priority,
	}
}

// Open opens a Database with the config applied.
func (c *Config) Open(logger *slog.Logger, extra ...citare.DatabaseOption) (*citare.Database, error) {
	return citare.NewDatabase(c.Storage.DBPath, append(c.DatabaseOptions(logger), extra...)...)
}
