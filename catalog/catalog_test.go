package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testRule(id string) *Rule {
	return &Rule{Entry: Entry{
		ID:           id,
		Title:        "Storage limitation",
		Body:         "Personal data shall be kept no longer than necessary.",
		Overview:     "Limits how long personal data may be retained.",
		Jurisdiction: "EU",
		TopicKey:     "data_privacy",
		TopicLabel:   "Data Privacy",
		SourceURL:    "https://eur-lex.example/gdpr/art5",
	}}
}

func TestUpsertAndResolve(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.UpsertRule(ctx, testRule("gdpr-5")))
	require.NoError(t, c.UpsertReport(ctx, &Report{Entry: Entry{
		ID:           "rep-1",
		Body:         "Q3 incidents were all closed within 72 hours.",
		Jurisdiction: "US",
		TopicKey:     "incident_response",
	}}))

	content, err := c.Resolve(ctx, "gdpr-5")
	require.NoError(t, err)
	assert.Equal(t, core.EntityTypeRule, content.EntityType)
	assert.Equal(t, "# Storage limitation\n\nPersonal data shall be kept no longer than necessary.", content.Content)
	assert.Equal(t, "EU", content.Jurisdiction)
	assert.Equal(t, "data_privacy", content.TopicKey)

	content, err = c.Resolve(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, core.EntityTypeReport, content.EntityType)
	assert.Equal(t, "Q3 incidents were all closed within 72 hours.", content.Content)

	_, err = c.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpsertRule_Replaces(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.UpsertRule(ctx, testRule("gdpr-5")))
	updated := testRule("gdpr-5")
	updated.Body = "Amended text."
	require.NoError(t, c.UpsertRule(ctx, updated))

	content, err := c.Resolve(ctx, "gdpr-5")
	require.NoError(t, err)
	assert.Contains(t, content.Content, "Amended text.")

	ids, err := c.IDs(ctx, core.EntityTypeRule)
	require.NoError(t, err)
	assert.Equal(t, []string{"gdpr-5"}, ids)
}

func TestUpsert_Invalid(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.UpsertRule(ctx, &Rule{Entry: Entry{ID: "x"}}), ErrInvalidEntry)
	assert.ErrorIs(t, c.UpsertReport(ctx, &Report{Entry: Entry{Body: "text"}}), ErrInvalidEntry)
}

func TestLookup(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.UpsertRule(ctx, testRule("gdpr-5")))

	obj, err := c.Lookup(ctx, "gdpr-5", core.EntityTypeRule)
	require.NoError(t, err)
	assert.Equal(t, "https://eur-lex.example/gdpr/art5", obj.SourceURL)
	assert.Equal(t, "EU", obj.Jurisdiction)
	assert.Equal(t, "Data Privacy", obj.TopicLabel)
	assert.Equal(t, "Limits how long personal data may be retained.", obj.Overview)

	// Type must match the table
	_, err = c.Lookup(ctx, "gdpr-5", core.EntityTypeReport)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(ctx, "gdpr-5", "memo")
	assert.ErrorIs(t, err, core.ErrInvalidEntityType)
}

func TestIDsAndDelete(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	for _, id := range []string{"r3", "r1", "r2"} {
		require.NoError(t, c.UpsertRule(ctx, testRule(id)))
	}

	ids, err := c.IDs(ctx, core.EntityTypeRule)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids)

	reports, err := c.IDs(ctx, core.EntityTypeReport)
	require.NoError(t, err)
	assert.Empty(t, reports)

	require.NoError(t, c.Delete(ctx, "r2"))
	assert.ErrorIs(t, c.Delete(ctx, "r2"), ErrNotFound)

	ids, err = c.IDs(ctx, core.EntityTypeRule)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r3"}, ids)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	ctx := context.Background()

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.UpsertRule(ctx, testRule("r1")))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()

	content, err := c.Resolve(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, core.EntityTypeRule, content.EntityType)
}
