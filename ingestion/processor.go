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


package ingestion

import (
	"context"

	"github.com/poiesic/citare/core"
)

// Content is what a ContentSource knows about one entity.
type Content struct {
	Content      string
	EntityType   core.EntityType
	Jurisdiction string
	TopicKey     string
}

// ContentSource resolves entity IDs to the text that should be embedded.
// Implementations must be thread-safe.
type ContentSource interface {
	// Resolve returns the content of an entity. A missing entity yields an
	// error wrapping storage.ErrNotFound.
	Resolve(ctx context.Context, entityID string) (*Content, error)
}

// processor is an internal interface for processing one entity of a job.
type processor interface {
	// process embeds and stores one entity. Errors wrapping ErrStoreFailure
	// or a context error abort the job; anything else is per-entity.
	process(ctx context.Context, entityID string) error
}
