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

package hydrate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/search"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Defaults for Hydrator.
const (
	DefaultPoolSize      = 4
	DefaultSnippetLength = 500
	DefaultBaseURL       = "https://regulations.example"
	DefaultLookupTimeout = 5 * time.Second
)

// Source is a hydrated search match ready for display.
type Source struct {
	EntityID      string
	EntityType    core.EntityType
	Similarity    float32
	Snippet       string
	Jurisdiction  string
	TopicKey      string
	TopicLabel    string
	SourceURL     string
	LowConfidence bool
}

// Hydrator resolves matches to Sources using a bounded pool of lookups.
type Hydrator struct {
	lookup        DomainLookup
	pool          *ants.Pool
	poolSize      int
	md            goldmark.Markdown
	baseURL       string
	snippetLength int
	lookupTimeout time.Duration
	logger        *slog.Logger
}

// Option configures a Hydrator.
type Option func(*Hydrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hydrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
		return nil
	}
}

// WithPoolSize sets how many lookups run at once.
// Default is 4.
func WithPoolSize(size int) Option {
	return func(h *Hydrator) error {
		if size < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidPoolSize, size)
		}
		h.poolSize = size
		return nil
	}
}

// WithBaseURL sets the base of derived source URLs.
func WithBaseURL(base string) Option {
	return func(h *Hydrator) error {
		if base != "" {
			h.baseURL = base
		}
		return nil
	}
}

// WithSnippetLength caps snippets at n characters. Values above the
// default are clamped to it.
func WithSnippetLength(n int) Option {
	return func(h *Hydrator) error {
		if n > 0 {
			h.snippetLength = min(n, DefaultSnippetLength)
		}
		return nil
	}
}

// WithLookupTimeout bounds each domain lookup. Zero disables the bound.
func WithLookupTimeout(d time.Duration) Option {
	return func(h *Hydrator) error {
		h.lookupTimeout = d
		return nil
	}
}

// NewHydrator creates a hydrator. A nil lookup is allowed; every source is
// then built from record metadata alone.
func NewHydrator(lookup DomainLookup, opts ...Option) (*Hydrator, error) {
	h := &Hydrator{
		lookup:        lookup,
		poolSize:      DefaultPoolSize,
		md:            goldmark.New(goldmark.WithExtensions(extension.GFM)),
		baseURL:       DefaultBaseURL,
		snippetLength: DefaultSnippetLength,
		lookupTimeout: DefaultLookupTimeout,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	h.logger = h.logger.With("component", "hydrator")

	pool, err := ants.NewPool(h.poolSize)
	if err != nil {
		return nil, err
	}
	h.pool = pool

	return h, nil
}

// Release stops the lookup pool.
func (h *Hydrator) Release() {
	if h.pool != nil {
		h.pool.Release()
	}
}

// Hydrate returns one Source per match, in match order.
func (h *Hydrator) Hydrate(ctx context.Context, query string, matches []search.Match) []Source {
	sources := make([]Source, len(matches))
	if len(matches) == 0 {
		return sources
	}

	keywords := keywordSet(query)

	var wg sync.WaitGroup
	for i := range matches {
		wg.Add(1)
		err := h.pool.Submit(func() {
			defer wg.Done()
			sources[i] = h.hydrateOne(ctx, keywords, matches[i])
		})
		if err != nil {
			// Pool released or overloaded; do it inline
			wg.Done()
			sources[i] = h.hydrateOne(ctx, keywords, matches[i])
		}
	}
	wg.Wait()

	return sources
}

func (h *Hydrator) hydrateOne(ctx context.Context, keywords map[string]bool, m search.Match) Source {
	rec := m.Record
	src := Source{
		EntityID:      rec.EntityID,
		EntityType:    rec.EntityType,
		Similarity:    m.Similarity,
		Jurisdiction:  rec.Metadata.Jurisdiction,
		TopicKey:      rec.Metadata.TopicKey,
		LowConfidence: m.LowConfidence,
	}

	obj := h.lookupObject(ctx, rec.EntityID, rec.EntityType)

	if obj.Jurisdiction != "" {
		src.Jurisdiction = obj.Jurisdiction
	}
	src.TopicLabel = obj.TopicLabel
	if src.TopicLabel == "" {
		src.TopicLabel = HumanizeTopic(src.TopicKey)
	}
	src.SourceURL = obj.SourceURL
	if src.SourceURL == "" {
		src.SourceURL = sourceURL(h.baseURL, src.Jurisdiction, string(rec.EntityType), rec.EntityID)
	}

	body := obj.Overview
	if strings.TrimSpace(body) == "" {
		body = plainText(h.md, rec.Content)
	}
	src.Snippet = Snippet(body, keywords, h.snippetLength)

	return src
}

// lookupObject never returns nil. Failures are logged and yield an empty object.
func (h *Hydrator) lookupObject(ctx context.Context, entityID string, entityType core.EntityType) *DomainObject {
	if h.lookup == nil {
		return &DomainObject{}
	}

	if h.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.lookupTimeout)
		defer cancel()
	}

	obj, err := h.lookup.Lookup(ctx, entityID, entityType)
	if err != nil {
		h.logger.Warn("lookup failed, using defaults", "entity", entityID, "type", entityType, "err", err)
		return &DomainObject{}
	}
	if obj == nil {
		return &DomainObject{}
	}
	return obj
}
