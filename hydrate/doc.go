// Package hydrate turns ranked search matches into display sources.
//
// Each match is resolved through a DomainLookup to recover its canonical
// link, jurisdiction and topic label, and a snippet of at most 500
// characters is cut around the first query keyword. Hydration is
// best-effort: a failed or partial lookup is filled in with defaults
// derived from the stored record, and never fails the call.
package hydrate
