package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/citare/catalog"
	"github.com/poiesic/citare/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not registered", name)
	return nil
}

func TestCommandsRegistered(t *testing.T) {
	app := newApp()
	for _, name := range []string{"serve", "submit", "process", "schedule", "search", "job", "jobs", "reap", "purge", "reembed", "init-config"} {
		cmd := findCommand(t, app, name)
		assert.NotNil(t, cmd.Action, name)
	}
}

func TestReembedCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "reembed")

	defaults := map[string]int{"batch-size": 50, "report-interval": 100, "max-retries": 3}
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.IntFlag); ok {
			want, known := defaults[f.Name]
			require.True(t, known, f.Name)
			assert.Equal(t, want, f.Value, f.Name)
			assert.Empty(t, f.EnvVars, f.Name)
		}
	}
}

func TestReembedCommandValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "zero batch size", args: []string{"--batch-size", "0"}, wantErr: "batch-size"},
		{name: "zero report interval", args: []string{"--report-interval", "0"}, wantErr: "report-interval"},
		{name: "zero retries", args: []string{"--max-retries", "0"}, wantErr: "max-retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp()
			args := append([]string{"citare", "reembed"}, tt.args...)
			err := app.Run(args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestArgumentValidation(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr string
	}{
		{args: []string{"submit"}, wantErr: "entity id"},
		{args: []string{"submit", "--all", "r1"}, wantErr: "not both"},
		{args: []string{"search"}, wantErr: "query"},
		{args: []string{"search", "--entity-type", "memo", "privacy"}, wantErr: "invalid entity type"},
		{args: []string{"job"}, wantErr: "job id"},
		{args: []string{"purge", "a", "b"}, wantErr: "entity id"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			err := newApp().Run(append([]string{"citare"}, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetupLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
		t.Run(level, func(t *testing.T) {
			app := &cli.App{
				Name:   "test",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
				Before: setupLogger,
				Action: func(*cli.Context) error { return nil },
			}
			require.NoError(t, app.Run([]string{"test", "--log-level", level}))
		})
	}

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := &cli.App{
			Name:   "test",
			Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
			Before: setupLogger,
			Action: func(*cli.Context) error { return nil },
		}
		err := app.Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

// run executes the CLI against a scratch database without an embedding provider.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"citare", "--log-level", "error", "--db", dbPath}, args...))
	return out.String(), err
}

func TestCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CITARE_AI_DISABLED", "true")
	t.Setenv("CITARE_AI_DIMENSIONS", "8")
	dbPath := filepath.Join(dir, "db")

	out, err := run(t, dbPath, "submit", "--priority", "high", "--retry-count", "1", "r1", "r2")
	require.NoError(t, err)
	jobID := strings.TrimSpace(out)
	require.NotEmpty(t, jobID)

	out, err = run(t, dbPath, "jobs", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, jobID)

	out, err = run(t, dbPath, "process")
	require.NoError(t, err)
	assert.Contains(t, out, "Claimed 1 jobs: 1 completed")

	// Nothing in the catalog, so both entities fail individually
	out, err = run(t, dbPath, "job", jobID)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:    completed")
	assert.Contains(t, out, "0/2 completed, 2 failed")
	assert.Contains(t, out, "Attempts:  0 of 2")

	out, err = run(t, dbPath, "search", "data", "retention")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching sources")

	out, err = run(t, dbPath, "reap", "--older-than=-1m")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 finished jobs")

	out, err = run(t, dbPath, "purge", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 0 embedding records")

	_, err = run(t, dbPath, "job", jobID)
	assert.Error(t, err)

	_, err = run(t, dbPath, "reembed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider")
}

func TestInitConfigCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "citare.yaml")

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"citare", "init-config", "--output", path}))
	assert.Contains(t, out.String(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_jobs_per_run: 5")

	err = newApp().Run([]string{"citare", "init-config", "--output", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, newApp().Run([]string{"citare", "init-config", "--output", path, "--force"}))
}

func TestSubmitAllAndPurgeCatalog(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CITARE_AI_DISABLED", "true")
	t.Setenv("CITARE_AI_DIMENSIONS", "8")
	dbPath := filepath.Join(dir, "db")

	_, err := run(t, dbPath, "submit", "--all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rules or reports")

	cfg := config.Default()
	cfg.Storage.DBPath = dbPath
	cfg.AI.Disabled = true
	cfg.AI.Dimensions = 8
	db, err := cfg.Open(slog.Default())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.Catalog().UpsertRule(ctx, &catalog.Rule{Entry: catalog.Entry{
		ID: "gdpr-5", Body: "Personal data shall be kept no longer than necessary.", Jurisdiction: "EU", TopicKey: "data_privacy",
	}}))
	require.NoError(t, db.Catalog().UpsertReport(ctx, &catalog.Report{Entry: catalog.Entry{
		ID: "rep-1", Body: "Retention schedules were reviewed.", Jurisdiction: "EU", TopicKey: "data_privacy",
	}}))
	require.NoError(t, db.Close())

	out, err := run(t, dbPath, "submit", "--all")
	require.NoError(t, err)
	jobID := strings.TrimSpace(out)

	_, err = run(t, dbPath, "process")
	require.NoError(t, err)
	out, err = run(t, dbPath, "job", jobID)
	require.NoError(t, err)
	assert.Contains(t, out, "2/2 completed, 0 failed")

	out, err = run(t, dbPath, "purge", "--catalog", "gdpr-5")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 embedding records")
	assert.Contains(t, out, "Deleted catalog entry gdpr-5")

	_, err = run(t, dbPath, "purge", "--catalog", "gdpr-5")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}
