package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/citare"
	"github.com/poiesic/citare/api"
	"github.com/poiesic/citare/catalog"
	"github.com/poiesic/citare/config"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/ingestion"
	"github.com/poiesic/citare/reembed"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, path, err := config.Resolve(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.DBPath = db
	}
	if path == "" {
		path = "built-in defaults"
	}
	slog.Debug("configuration loaded", "source", path, "db", cfg.Storage.DBPath)
	return cfg, nil
}

func openDatabase(c *cli.Context) (*citare.Database, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	db, err := cfg.Open(slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	server, err := api.NewServer(db,
		api.WithLogger(slog.Default()),
		api.WithSearchDefaults(cfg.Search.DefaultK, cfg.Search.DefaultThreshold),
		api.WithJobDefaults(*cfg.JobConfig("")),
	)
	if err != nil {
		return err
	}

	addr := cfg.HTTP.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	var wg sync.WaitGroup
	if !c.Bool("no-scheduler") {
		scheduler, err := db.NewScheduler(ingestion.WithInterval(cfg.Jobs.ScheduleInterval))
		if err != nil {
			return err
		}
		defer scheduler.Release()

		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Run(ctx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}

func submitCommand(c *cli.Context) error {
	entityIDs := c.Args().Slice()
	if c.Bool("all") && len(entityIDs) > 0 {
		return errors.New("pass entity ids or --all, not both")
	}
	if !c.Bool("all") && len(entityIDs) == 0 {
		return errors.New("at least one entity id is required")
	}

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Bool("all") {
		if entityIDs, err = catalogIDs(c.Context, db.Catalog()); err != nil {
			return err
		}
		if len(entityIDs) == 0 {
			return errors.New("catalog has no rules or reports")
		}
	}

	jobCfg := cfg.JobConfig("")
	if c.IsSet("batch-size") {
		if c.Int("batch-size") <= 0 {
			return fmt.Errorf("batch-size must be greater than 0")
		}
		jobCfg.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("retry-count") {
		if c.Int("retry-count") < 0 {
			return fmt.Errorf("retry-count must not be negative")
		}
		jobCfg.RetryCount = c.Int("retry-count")
	}

	id, err := db.SubmitEmbeddingJob(c.Context, core.JobType(c.String("type")), entityIDs, core.Priority(c.String("priority")), jobCfg)
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}
	fmt.Fprintln(c.App.Writer, id)
	return nil
}

// catalogIDs lists every rule id followed by every report id.
func catalogIDs(ctx context.Context, cat *catalog.Catalog) ([]string, error) {
	if cat == nil {
		return nil, errors.New("database has no catalog")
	}
	var ids []string
	for _, entityType := range []core.EntityType{core.EntityTypeRule, core.EntityTypeReport} {
		typed, err := cat.IDs(ctx, entityType)
		if err != nil {
			return nil, fmt.Errorf("list %ss: %w", entityType, err)
		}
		ids = append(ids, typed...)
	}
	return ids, nil
}

func processCommand(c *cli.Context) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := db.RunScheduledProcessing(c.Context)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Claimed %d jobs: %d completed, %d failed, %d retrying\n",
		summary.Claimed, summary.Completed, summary.Failed, summary.Retrying)
	return nil
}

func scheduleCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	interval := cfg.Jobs.ScheduleInterval
	if c.IsSet("interval") {
		interval = c.Duration("interval")
	}
	scheduler, err := db.NewScheduler(ingestion.WithInterval(interval))
	if err != nil {
		return err
	}
	defer scheduler.Release()

	return scheduler.Run(ctx)
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a query is required")
	}

	filters := core.Filters{
		EntityType:   core.EntityType(c.String("entity-type")),
		Jurisdiction: c.String("jurisdiction"),
		TopicKey:     c.String("topic"),
	}
	if filters.EntityType != "" {
		if err := core.ValidateEntityType(filters.EntityType); err != nil {
			return err
		}
	}

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	k := cfg.Search.DefaultK
	if c.IsSet("k") {
		k = c.Int("k")
	}
	threshold := cfg.Search.DefaultThreshold
	if c.IsSet("threshold") {
		threshold = float32(c.Float64("threshold"))
	}

	resp, err := db.SearchTopK(c.Context, query, k, threshold, filters)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printSearch(c.App.Writer, resp)
	return nil
}

func printSearch(w io.Writer, resp *citare.SearchResponse) {
	if len(resp.Sources) == 0 {
		fmt.Fprintf(w, "No matching sources (%d candidates)\n", resp.Candidates)
		return
	}
	if resp.Degraded {
		fmt.Fprintln(w, "No source met the threshold; showing the closest low-confidence matches")
	}
	if resp.QueryFallback {
		fmt.Fprintln(w, "Warning: the query was embedded without the provider; scores are not meaningful")
	}
	for i, src := range resp.Sources {
		fmt.Fprintf(w, "%d. [%0.3f] %s %s (%s, %s)\n", i+1, src.Similarity, src.EntityType, src.EntityID, src.Jurisdiction, src.TopicLabel)
		fmt.Fprintf(w, "   %s\n", src.SourceURL)
		fmt.Fprintf(w, "   %s\n", src.Snippet)
	}
}

func jobCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one job id is required")
	}

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	job, err := db.Job(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Job:       %s\n", job.JobID)
	fmt.Fprintf(w, "Type:      %s\n", job.JobType)
	fmt.Fprintf(w, "Status:    %s\n", job.Status)
	fmt.Fprintf(w, "Priority:  %s\n", job.Config.Priority)
	fmt.Fprintf(w, "Progress:  %d/%d completed, %d failed\n", job.Progress.Completed, job.Progress.Total, job.Progress.Failed)
	fmt.Fprintf(w, "Attempts:  %d of %d\n", job.Attempts, job.Config.RetryCount+1)
	fmt.Fprintf(w, "Scheduled: %s\n", job.ScheduledAt.Format(time.RFC3339))
	if !job.StartedAt.IsZero() {
		fmt.Fprintf(w, "Started:   %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if !job.CompletedAt.IsZero() {
		fmt.Fprintf(w, "Finished:  %s\n", job.CompletedAt.Format(time.RFC3339))
	}
	for _, msg := range job.Progress.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
	return nil
}

func jobsCommand(c *cli.Context) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := db.Jobs(c.Context, core.JobStatus(c.String("status")))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tPRIORITY\tPROGRESS\tSCHEDULED")
	for _, job := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d (%d failed)\t%s\n",
			job.JobID, job.JobType, job.Status, job.Config.Priority,
			job.Progress.Completed, job.Progress.Total, job.Progress.Failed,
			job.ScheduledAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func reapCommand(c *cli.Context) error {
	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	olderThan := cfg.Jobs.Retention
	if c.IsSet("older-than") {
		olderThan = c.Duration("older-than")
	}
	n, err := db.Reap(c.Context, olderThan)
	if err != nil {
		return fmt.Errorf("reap failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted %d finished jobs older than %s\n", n, olderThan)
	return nil
}

func purgeCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one entity id is required")
	}

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	entityID := c.Args().First()
	n, err := db.PurgeEntity(c.Context, entityID)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted %d embedding records\n", n)

	if c.Bool("catalog") {
		cat := db.Catalog()
		if cat == nil {
			return errors.New("database has no catalog")
		}
		if err := cat.Delete(c.Context, entityID); err != nil {
			return fmt.Errorf("delete catalog entry: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Deleted catalog entry %s\n", entityID)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()
	reembedConfig.Pacing = cfg.Jobs.Pacing

	errw := c.App.ErrWriter
	fmt.Fprintf(errw, "Database: %s\n", cfg.Storage.DBPath)
	fmt.Fprintf(errw, "Embedding host: %s\n", cfg.AI.Host)
	fmt.Fprintf(errw, "Embedding model: %s\n", cfg.AI.Model)
	fmt.Fprintln(errw)

	if _, err := db.RefreshFallbackEmbeddings(ctx, errw, reembedConfig); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func initConfigCommand(c *cli.Context) error {
	path := c.String("output")
	if path == "" {
		var err error
		if path, err = config.UserPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}
