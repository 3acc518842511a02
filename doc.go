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

// Package citare embeds legal and compliance documents and retrieves them
// by semantic similarity.
//
// A Database ties together the embedding store, the job pipeline that fills
// it, and the query path that searches it:
//
//	db, err := citare.NewDatabase("/var/lib/citare/db", citare.WithAIConfig(cfg))
//	id, err := db.SubmitEmbeddingJob(ctx, core.JobTypeImportExisting, ids, core.PriorityHigh, nil)
//	summary, err := db.RunScheduledProcessing(ctx)
//	resp, err := db.SearchTopK(ctx, "how long may personal data be kept", 5, 0.75, core.Filters{})
//
// Processing is cooperative: something outside the Database, such as a cron
// job, the ingestion.Scheduler or an HTTP call, must call
// RunScheduledProcessing periodically.
package citare
