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

package citare

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/citare/ai"
	"github.com/poiesic/citare/ai/providers"
	"github.com/poiesic/citare/catalog"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/hydrate"
	"github.com/poiesic/citare/ingestion"
	"github.com/poiesic/citare/reembed"
	"github.com/poiesic/citare/search"
	"github.com/poiesic/citare/storage"
	"github.com/poiesic/citare/storage/badger"
)

// DefaultK is used by SearchTopK when k is not positive.
const DefaultK = 5

// SearchResponse is the result of SearchTopK.
type SearchResponse struct {
	Sources []hydrate.Source
	// Degraded is set when no source cleared the threshold and the best
	// candidates were returned with LowConfidence.
	Degraded bool
	// Candidates is the number of stored records scored.
	Candidates int
	// QueryFallback is set when the query itself was embedded by the fallback
	// generator. Similarities are then not meaningful.
	QueryFallback bool
}

type Database struct {
	backend   *badger.Backend
	records   storage.EmbeddingRepository
	jobs      storage.JobRepository
	catalog   *catalog.Catalog
	provider  ai.AIProvider
	generator *ai.Generator
	manager   *ingestion.Manager
	searcher  *search.Searcher
	hydrator  *hydrate.Hydrator
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions) error

type databaseOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	noProvider  bool
	inMemory    bool
	catalogPath string
	source      ingestion.ContentSource
	lookup      hydrate.DomainLookup
	managerOpts []ingestion.Option
	hydrateOpts []hydrate.Option
	logger      *slog.Logger
}

// WithAIConfig sets the embedding provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) error {
		if cfg == nil {
			return errors.New("ai config must not be nil")
		}
		o.aiConfig = cfg
		return nil
	}
}

// WithProvider uses an already constructed provider instead of building one
// from the AI config. The Database closes it.
func WithProvider(p ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) error {
		o.provider = p
		return nil
	}
}

// WithoutProvider runs with fallback embeddings only.
func WithoutProvider() DatabaseOption {
	return func(o *databaseOptions) error {
		o.noProvider = true
		return nil
	}
}

// WithInMemory keeps the store and the default catalog in memory.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) error {
		o.inMemory = true
		return nil
	}
}

// WithCatalogPath sets where the catalog database lives.
// Default is "<filePath>.catalog.db".
func WithCatalogPath(path string) DatabaseOption {
	return func(o *databaseOptions) error {
		o.catalogPath = path
		return nil
	}
}

// WithContentSource replaces the catalog as the source of entity content.
func WithContentSource(source ingestion.ContentSource) DatabaseOption {
	return func(o *databaseOptions) error {
		o.source = source
		return nil
	}
}

// WithDomainLookup replaces the catalog for hydration.
func WithDomainLookup(lookup hydrate.DomainLookup) DatabaseOption {
	return func(o *databaseOptions) error {
		o.lookup = lookup
		return nil
	}
}

// WithManagerOptions passes options to the job manager.
func WithManagerOptions(opts ...ingestion.Option) DatabaseOption {
	return func(o *databaseOptions) error {
		o.managerOpts = append(o.managerOpts, opts...)
		return nil
	}
}

// WithHydratorOptions passes options to the hydrator.
func WithHydratorOptions(opts ...hydrate.Option) DatabaseOption {
	return func(o *databaseOptions) error {
		o.hydrateOpts = append(o.hydrateOpts, opts...)
		return nil
	}
}

// WithLogger sets a custom logger for every component.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewDatabase opens the embedding store at filePath and wires the job
// pipeline and query path around it.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	db := &Database{logger: options.logger}
	if err := db.open(filePath, options); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) open(filePath string, options *databaseOptions) error {
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return err
	}
	db.backend = backend

	if db.records, err = badger.NewEmbeddingRepository(backend); err != nil {
		return err
	}
	if db.jobs, err = badger.NewJobRepository(backend); err != nil {
		return err
	}

	source, lookup := options.source, options.lookup
	if source == nil || lookup == nil {
		path := options.catalogPath
		switch {
		case path != "":
		case options.inMemory:
			path = catalog.MemoryPath
		default:
			path = strings.TrimRight(filePath, "/") + ".catalog.db"
		}
		if db.catalog, err = catalog.Open(path, catalog.WithLogger(options.logger)); err != nil {
			return err
		}
		if source == nil {
			source = db.catalog
		}
		if lookup == nil {
			lookup = db.catalog
		}
	}

	cfg := options.aiConfig
	cfg.Normalize()

	genOpts := []ai.GeneratorOption{
		ai.WithVectorDimensions(cfg.Dimensions),
		ai.WithProviderTimeout(cfg.Timeout),
		ai.WithLogger(options.logger),
	}
	switch {
	case options.noProvider:
		if options.provider != nil {
			options.provider.Close()
		}
	case options.provider != nil:
		db.provider = options.provider
	default:
		if db.provider, err = providers.New(cfg); err != nil {
			return err
		}
	}
	if db.provider != nil {
		genOpts = append(genOpts, ai.WithEmbedder(db.provider.Embedder()))
	}
	if db.generator, err = ai.NewGenerator(genOpts...); err != nil {
		return err
	}

	managerOpts := append([]ingestion.Option{ingestion.WithLogger(options.logger)}, options.managerOpts...)
	if db.manager, err = ingestion.NewManager(db.jobs, db.records, source, db.generator, managerOpts...); err != nil {
		return err
	}

	if db.searcher, err = search.NewSearcher(db.records, search.WithLogger(options.logger)); err != nil {
		return err
	}

	hydrateOpts := append([]hydrate.Option{hydrate.WithLogger(options.logger)}, options.hydrateOpts...)
	if db.hydrator, err = hydrate.NewHydrator(lookup, hydrateOpts...); err != nil {
		return err
	}
	return nil
}

// Close releases every component. It is safe to call on a partially opened Database.
func (db *Database) Close() error {
	if db.hydrator != nil {
		db.hydrator.Release()
	}

	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
		}
	}

	if db.catalog != nil {
		if err := db.catalog.Close(); err != nil {
			db.logger.Error("error closing catalog", "err", err)
		}
	}

	if db.jobs != nil {
		if err := db.jobs.Close(); err != nil {
			db.logger.Error("error closing job repository", "err", err)
			return err
		}
	}
	if db.records != nil {
		if err := db.records.Close(); err != nil {
			db.logger.Error("error closing embedding repository", "err", err)
			return err
		}
	}

	if db.backend != nil {
		if err := db.backend.Close(); err != nil {
			db.logger.Error("error closing backend storage", "err", err)
			return err
		}
	}
	return nil
}

// SubmitEmbeddingJob queues a job to embed entityIDs and returns its id.
// A nil cfg uses the defaults.
func (db *Database) SubmitEmbeddingJob(ctx context.Context, jobType core.JobType, entityIDs []string, priority core.Priority, cfg *core.JobConfig) (string, error) {
	return db.manager.CreateJob(ctx, jobType, entityIDs, priority, cfg)
}

// RunScheduledProcessing claims and processes the next pending jobs. Call it
// periodically.
func (db *Database) RunScheduledProcessing(ctx context.Context) (*ingestion.RunSummary, error) {
	return db.manager.RunScheduled(ctx)
}

// SearchTopK embeds queryText and returns at most k hydrated sources whose
// similarity is at least threshold, best first. An empty Sources is a
// normal "no confident match" result.
func (db *Database) SearchTopK(ctx context.Context, queryText string, k int, threshold float32, filters core.Filters) (*SearchResponse, error) {
	return db.SearchTopKWithMonitor(ctx, queryText, k, threshold, filters, nil)
}

// SearchTopKWithMonitor is SearchTopK with search callbacks.
func (db *Database) SearchTopKWithMonitor(ctx context.Context, queryText string, k int, threshold float32, filters core.Filters, monitor search.SearchMonitor) (*SearchResponse, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultK
	}

	query := db.generator.GenerateQuery(ctx, queryText)
	result, err := db.searcher.SearchWithMonitor(ctx, query.Vector, filters, k, threshold, monitor)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Sources:       db.hydrator.Hydrate(ctx, queryText, result.Matches),
		Degraded:      result.Degraded,
		Candidates:    result.Candidates,
		QueryFallback: query.Fallback,
	}, nil
}

// Job returns a job with its current progress.
func (db *Database) Job(ctx context.Context, jobID string) (*core.EmbeddingJob, error) {
	return db.manager.GetJob(ctx, jobID)
}

// Jobs lists jobs in a status, or all jobs when status is empty.
func (db *Database) Jobs(ctx context.Context, status core.JobStatus) ([]*core.EmbeddingJob, error) {
	return db.manager.ListJobs(ctx, status)
}

// Reap deletes finished jobs scheduled more than olderThan ago.
func (db *Database) Reap(ctx context.Context, olderThan time.Duration) (int, error) {
	return db.manager.Reap(ctx, time.Now().UTC().Add(-olderThan))
}

// PurgeEntity deletes every stored embedding of an entity.
func (db *Database) PurgeEntity(ctx context.Context, entityID string) (int, error) {
	n, err := db.records.DeleteByEntity(ctx, entityID)
	if err != nil {
		return 0, err
	}
	db.logger.Info("purged entity embeddings", "entity", entityID, "records", n)
	return n, nil
}

// RefreshFallbackEmbeddings re-embeds every fallback record with the
// configured provider, writing progress to w. A nil cfg uses the defaults.
func (db *Database) RefreshFallbackEmbeddings(ctx context.Context, w io.Writer, cfg *reembed.Config) (*reembed.Summary, error) {
	if db.provider == nil {
		return nil, ErrProviderRequired
	}
	if cfg == nil {
		cfg = reembed.DefaultConfig()
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = db.generator.Dimensions()
	}

	r, err := reembed.NewReembedder(db.records, db.provider.Embedder(), cfg, w, db.logger)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

// NewScheduler returns a scheduler that calls RunScheduledProcessing on an interval.
func (db *Database) NewScheduler(opts ...ingestion.SchedulerOption) (*ingestion.Scheduler, error) {
	opts = append([]ingestion.SchedulerOption{ingestion.WithSchedulerLogger(db.logger)}, opts...)
	return ingestion.NewScheduler(db.manager, opts...)
}

// Catalog returns the catalog opened by the Database, or nil when both a
// content source and a domain lookup were supplied.
func (db *Database) Catalog() *catalog.Catalog {
	return db.catalog
}

func (db *Database) EmbeddingRepository() storage.EmbeddingRepository {
	return db.records
}

func (db *Database) JobRepository() storage.JobRepository {
	return db.jobs
}
