// Package reembed refreshes embeddings that were written by the fallback
// generator.
//
// When the embedding provider is unavailable, the job pipeline stores
// deterministic placeholder vectors tagged with core.MockModelTag. Once the
// provider is back, a Reembedder walks the store, sends the content of every
// tagged record to the provider in paced, retried batches and upserts the
// real vectors in place. Records keep their content hash, so the refresh is
// idempotent and can be interrupted and resumed.
package reembed
