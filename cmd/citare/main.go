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

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "citare",
		Usage: "Embedding jobs and similarity retrieval for rules and reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: ./citare.yaml, then the user config dir)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides storage.db_path)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and run scheduled processing",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides http.addr)",
					},
					&cli.BoolFlag{
						Name:  "no-scheduler",
						Usage: "Do not process jobs in the background",
					},
				},
			},
			{
				Name:      "submit",
				Usage:     "Queue an embedding job for entity ids",
				ArgsUsage: "ENTITY_ID...",
				Action:    submitCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Queue every rule and report in the catalog",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Job type (import_existing, generate_new, update_existing, batch_process)",
						Value: "generate_new",
					},
					&cli.StringFlag{
						Name:  "priority",
						Usage: "Job priority (high, medium, low)",
						Value: "medium",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Entities per progress checkpoint (overrides jobs.batch_size)",
					},
					&cli.IntFlag{
						Name:  "retry-count",
						Usage: "Job-level retries after a fatal failure (overrides jobs.retry_count)",
					},
				},
			},
			{
				Name:   "process",
				Usage:  "Run one scheduled processing cycle",
				Action: processCommand,
			},
			{
				Name:   "schedule",
				Usage:  "Run scheduled processing until interrupted",
				Action: scheduleCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Time between runs (overrides jobs.schedule_interval)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Find the rules and reports closest to a query",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "k",
						Usage: "Maximum number of sources (overrides search.default_k)",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity (overrides search.default_threshold)",
					},
					&cli.StringFlag{
						Name:  "entity-type",
						Usage: "Only match rule or report",
					},
					&cli.StringFlag{
						Name:  "jurisdiction",
						Usage: "Only match a jurisdiction",
					},
					&cli.StringFlag{
						Name:  "topic",
						Usage: "Only match a topic key",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the response as JSON",
					},
				},
			},
			{
				Name:      "job",
				Usage:     "Show a job's status and progress",
				ArgsUsage: "JOB_ID",
				Action:    jobCommand,
			},
			{
				Name:   "jobs",
				Usage:  "List jobs",
				Action: jobsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only list jobs in this status",
					},
				},
			},
			{
				Name:   "reap",
				Usage:  "Delete finished jobs older than the retention window",
				Action: reapCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Retention window (overrides jobs.retention)",
					},
				},
			},
			{
				Name:      "purge",
				Usage:     "Delete every stored embedding of an entity",
				ArgsUsage: "ENTITY_ID",
				Action:    purgeCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "catalog",
						Usage: "Also delete the rule or report from the catalog",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed records that hold fallback embeddings",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "init-config",
				Usage:  "Write the default configuration to a file",
				Action: initConfigCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination (default: the user config dir)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
