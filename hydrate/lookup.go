package hydrate

import (
	"context"

	"github.com/poiesic/citare/core"
)

// DomainObject is the display data a lookup knows about a Rule or Report.
// Any field may be empty.
type DomainObject struct {
	SourceURL    string
	Jurisdiction string
	TopicLabel   string
	// Overview is a curated summary preferred over the matched chunk for snippets.
	Overview string
}

// DomainLookup resolves an entity back to its domain object.
type DomainLookup interface {
	Lookup(ctx context.Context, entityID string, entityType core.EntityType) (*DomainObject, error)
}
