// Package catalog stores the Rules and Reports that embeddings are built
// from. It is a small GORM database on the pure-Go SQLite driver and serves
// as both the ingestion content source and the hydration domain lookup.
package catalog
