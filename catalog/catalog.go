package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/hydrate"
	"github.com/poiesic/citare/ingestion"
)

// MemoryPath opens a private in-memory catalog.
const MemoryPath = ":memory:"

// Catalog is a SQLite-backed store of rules and reports.
type Catalog struct {
	db     *gorm.DB
	logger *slog.Logger
	debug  bool
}

var (
	_ ingestion.ContentSource = (*Catalog)(nil)
	_ hydrate.DomainLookup    = (*Catalog)(nil)
)

// Option configures a Catalog.
type Option func(*Catalog) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) error {
		if l == nil {
			l = slog.Default()
		}
		c.logger = l
		return nil
	}
}

// WithDebug turns on SQL logging.
func WithDebug(debug bool) Option {
	return func(c *Catalog) error {
		c.debug = debug
		return nil
	}
}

// Open opens or creates the catalog at path and migrates its tables.
// Use MemoryPath for a throwaway catalog.
func Open(path string, opts ...Option) (*Catalog, error) {
	c := &Catalog{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "catalog")

	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)", path)
	}

	logLevel := logger.Silent
	if c.debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	// Every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Rule{}, &Report{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	c.db = db
	return c, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var entryColumns = []string{
	"title", "body", "overview", "jurisdiction", "topic_key", "topic_label", "source_url", "updated_at",
}

// UpsertRule creates a rule or replaces its content.
func (c *Catalog) UpsertRule(ctx context.Context, rule *Rule) error {
	if err := rule.validate(); err != nil {
		return err
	}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(entryColumns),
	}).Create(rule).Error
}

// UpsertReport creates a report or replaces its content.
func (c *Catalog) UpsertReport(ctx context.Context, report *Report) error {
	if err := report.validate(); err != nil {
		return err
	}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(entryColumns),
	}).Create(report).Error
}

// IDs returns the ids of every entry of a type, sorted.
func (c *Catalog) IDs(ctx context.Context, entityType core.EntityType) ([]string, error) {
	model, err := modelFor(entityType)
	if err != nil {
		return nil, err
	}
	var ids []string
	err = c.db.WithContext(ctx).Model(model).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// Delete removes an entry from whichever table holds it.
func (c *Catalog) Delete(ctx context.Context, entityID string) error {
	db := c.db.WithContext(ctx)
	var affected int64
	for _, model := range []any{&Rule{}, &Report{}} {
		res := db.Where("id = ?", entityID).Delete(model)
		if res.Error != nil {
			return res.Error
		}
		affected += res.RowsAffected
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, entityID)
	}
	return nil
}

// Resolve returns the embeddable content of a rule or report. Rules are
// checked first.
func (c *Catalog) Resolve(ctx context.Context, entityID string) (*ingestion.Content, error) {
	entry, entityType, err := c.find(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return &ingestion.Content{
		Content:      entry.content(),
		EntityType:   entityType,
		Jurisdiction: entry.Jurisdiction,
		TopicKey:     entry.TopicKey,
	}, nil
}

// Lookup returns the display fields of an entry.
func (c *Catalog) Lookup(ctx context.Context, entityID string, entityType core.EntityType) (*hydrate.DomainObject, error) {
	entry, err := c.get(ctx, entityID, entityType)
	if err != nil {
		return nil, err
	}
	return &hydrate.DomainObject{
		SourceURL:    entry.SourceURL,
		Jurisdiction: entry.Jurisdiction,
		TopicLabel:   entry.TopicLabel,
		Overview:     entry.Overview,
	}, nil
}

func (c *Catalog) find(ctx context.Context, entityID string) (*Entry, core.EntityType, error) {
	for _, entityType := range []core.EntityType{core.EntityTypeRule, core.EntityTypeReport} {
		entry, err := c.get(ctx, entityID, entityType)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return entry, entityType, err
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNotFound, entityID)
}

func (c *Catalog) get(ctx context.Context, entityID string, entityType core.EntityType) (*Entry, error) {
	var err error
	var entry *Entry
	switch entityType {
	case core.EntityTypeRule:
		var rule Rule
		err = c.db.WithContext(ctx).First(&rule, "id = ?", entityID).Error
		entry = &rule.Entry
	case core.EntityTypeReport:
		var report Report
		err = c.db.WithContext(ctx).First(&report, "id = ?", entityID).Error
		entry = &report.Entry
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidEntityType, entityType)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, entityType, entityID)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func modelFor(entityType core.EntityType) (any, error) {
	switch entityType {
	case core.EntityTypeRule:
		return &Rule{}, nil
	case core.EntityTypeReport:
		return &Report{}, nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrInvalidEntityType, entityType)
}
