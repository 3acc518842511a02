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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidRecord indicates an EmbeddingRecord failed validation.
	ErrInvalidRecord = errors.New("invalid embedding record")

	// ErrInvalidJob indicates an EmbeddingJob failed validation.
	ErrInvalidJob = errors.New("invalid embedding job")

	// ErrInvalidEntityType indicates an unknown EntityType value.
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrInvalidJobType indicates an unknown JobType value.
	ErrInvalidJobType = errors.New("invalid job type")

	// ErrInvalidJobStatus indicates an unknown JobStatus value.
	ErrInvalidJobStatus = errors.New("invalid job status")

	// ErrInvalidPriority indicates an unknown Priority value.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrEmptyEntityID indicates the EntityID field is empty.
	ErrEmptyEntityID = errors.New("entity id cannot be empty")

	// ErrEmptyEntityIDs indicates a job was created without entities.
	ErrEmptyEntityIDs = errors.New("job must reference at least one entity")

	// ErrEmptyContentHash indicates the ContentHash field is empty.
	ErrEmptyContentHash = errors.New("content hash cannot be empty")

	// ErrDimensionMismatch indicates a vector length differs from its declared dimensions.
	ErrDimensionMismatch = errors.New("vector length does not match dimensions")

	// ErrProgressOverflow indicates completed + failed exceeds total.
	ErrProgressOverflow = errors.New("progress exceeds total")

	// ErrMalformedValue indicates an encoded value could not be decoded.
	ErrMalformedValue = errors.New("malformed encoded value")
)
