// Package engine is the application core: it owns the chunk corpus, the
// sparse and dense indexes and the searcher, and exposes the two entry
// points every surface calls.
//
//	e, err := engine.Open(ctx, cfg, logger)
//	defer e.Close()
//
//	report, err := e.IngestRepository(ctx, "/src/widgets", nil)
//	resp, err := e.Search(ctx, "token refresh", 5)
//
// Ingestion replaces everything previously ingested from the same source:
// the corpus entry, the sparse index (rebuilt from the whole corpus) and
// the source's vectors. Only one ingestion runs at a time; a second caller
// gets ErrIngestInProgress immediately.
//
// The dense side is optional. When the embedding provider or vector
// backend cannot be set up, the engine still serves keyword search and
// says so in Status and in every search response.
package engine
