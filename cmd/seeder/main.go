package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/poiesic/citare/catalog"
	"github.com/poiesic/citare/config"
	"github.com/poiesic/citare/core"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// seedFile is the layout of a --src file.
type seedFile struct {
	Rules   []catalog.Entry `yaml:"rules"`
	Reports []catalog.Entry `yaml:"reports"`
}

var sampleRules = []catalog.Entry{
	{
		ID:           "gdpr-art-5",
		Title:        "Principles relating to processing of personal data",
		Body:         "Personal data shall be processed lawfully, fairly and in a transparent manner. It shall be collected for specified, explicit and legitimate purposes and kept in a form which permits identification of data subjects for no longer than is necessary.",
		Overview:     "Lawfulness, purpose limitation, data minimisation and storage limitation for personal data.",
		Jurisdiction: "EU",
		TopicKey:     "data_privacy",
		TopicLabel:   "Data Privacy",
	},
	{
		ID:           "gdpr-art-33",
		Title:        "Notification of a personal data breach",
		Body:         "In the case of a personal data breach, the controller shall without undue delay and, where feasible, not later than 72 hours after having become aware of it, notify the breach to the supervisory authority.",
		Jurisdiction: "EU",
		TopicKey:     "data_privacy",
		TopicLabel:   "Data Privacy",
	},
	{
		ID:           "ccpa-1798-100",
		Title:        "Consumer right to know",
		Body:         "A consumer shall have the right to request that a business that collects personal information disclose the categories and specific pieces of personal information the business has collected.",
		Jurisdiction: "US-CA",
		TopicKey:     "data_privacy",
	},
	{
		ID:           "osha-1904-39",
		Title:        "Reporting fatalities and severe injuries",
		Body:         "Within eight hours after the death of any employee as a result of a work-related incident, the employer must report the fatality to the Occupational Safety and Health Administration.",
		Jurisdiction: "US",
		TopicKey:     "workplace_safety",
		TopicLabel:   "Workplace Safety",
	},
	{
		ID:           "irc-6012",
		Title:        "Persons required to make returns of income",
		Body:         "Returns with respect to income taxes shall be made by every individual having for the taxable year gross income which equals or exceeds the exemption amount.",
		Jurisdiction: "US",
		TopicKey:     "tax",
		TopicLabel:   "Taxation",
	},
	{
		ID:           "aml-5amld-13",
		Title:        "Customer due diligence",
		Body:         "Obliged entities shall identify the customer and verify the customer's identity on the basis of documents, data or information obtained from a reliable and independent source, and identify the beneficial owner.",
		Jurisdiction: "EU",
		TopicKey:     "anti_money_laundering",
	},
}

var sampleReports = []catalog.Entry{
	{
		ID:           "rep-breach-2024",
		Title:        "Annual data breach review",
		Body:         "Twelve incidents involving customer records were reported. Nine were notified to the supervisory authority within 72 hours; three notifications were late because the breach was discovered by a processor.",
		Jurisdiction: "EU",
		TopicKey:     "data_privacy",
	},
	{
		ID:           "rep-safety-q3",
		Title:        "Warehouse safety incidents, third quarter",
		Body:         "Two forklift collisions and one fall from height were recorded. The fall resulted in a hospitalisation that was reported to the regulator within 24 hours.",
		Jurisdiction: "US",
		TopicKey:     "workplace_safety",
	},
	{
		ID:           "rep-kyc-audit",
		Title:        "Know your customer audit",
		Body:         "A sample of 200 onboarding files showed that beneficial ownership was not verified for 14 corporate customers. Remediation is due by the end of the year.",
		Jurisdiction: "EU",
		TopicKey:     "anti_money_laundering",
	},
}

func main() {
	app := &cli.App{
		Name:  "seeder",
		Usage: "Load sample rules and reports into the catalog and queue them for embedding",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./citare_db",
			},
			&cli.StringFlag{
				Name:  "src",
				Usage: "YAML file of rules and reports (default: built-in samples)",
			},
			&cli.BoolFlag{
				Name:  "process",
				Usage: "Process the queued job before exiting",
				Value: true,
			},
		},
		Action: seed,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func loadSeed(path string) (*seedFile, error) {
	if path == "" {
		return &seedFile{Rules: sampleRules, Reports: sampleReports}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &seed, nil
}

func seed(c *cli.Context) error {
	ctx := context.Background()

	data, err := loadSeed(c.String("src"))
	if err != nil {
		return err
	}

	cfg, _, err := config.Resolve(c.String("config"))
	if err != nil {
		return err
	}
	cfg.Storage.DBPath = c.String("db")

	db, err := cfg.Open(slog.Default())
	if err != nil {
		return err
	}
	defer db.Close()

	cat := db.Catalog()
	if cat == nil {
		return fmt.Errorf("database has no catalog")
	}

	ids := make([]string, 0, len(data.Rules)+len(data.Reports))
	for _, entry := range data.Rules {
		if err := cat.UpsertRule(ctx, &catalog.Rule{Entry: entry}); err != nil {
			return fmt.Errorf("rule %s: %w", entry.ID, err)
		}
		ids = append(ids, entry.ID)
	}
	for _, entry := range data.Reports {
		if err := cat.UpsertReport(ctx, &catalog.Report{Entry: entry}); err != nil {
			return fmt.Errorf("report %s: %w", entry.ID, err)
		}
		ids = append(ids, entry.ID)
	}
	slog.Info("catalog seeded", "rules", len(data.Rules), "reports", len(data.Reports))

	jobID, err := db.SubmitEmbeddingJob(ctx, core.JobTypeImportExisting, ids, core.PriorityHigh, cfg.JobConfig(""))
	if err != nil {
		return err
	}
	slog.Info("import job queued", "job", jobID, "entities", len(ids))

	if !c.Bool("process") {
		return nil
	}

	// Claims at most jobs.max_jobs_per_run per cycle; keep going until ours is done
	for {
		summary, err := db.RunScheduledProcessing(ctx)
		if err != nil {
			return err
		}
		job, err := db.Job(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() || summary.Claimed == 0 {
			slog.Info("import job finished", "job", jobID, "status", job.Status,
				"completed", job.Progress.Completed, "failed", job.Progress.Failed)
			return nil
		}
	}
}
