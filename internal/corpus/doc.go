// Package corpus keeps the ingested chunks, grouped by source.
//
// The sparse index is in memory only and must be rebuilt from the full chunk
// set after every ingestion and on startup. Store holds that set, answers
// id lookups for search results and persists everything to a bbolt file:
//
//	store, err := corpus.Open(filepath.Join(dataDir, "corpus.db"))
//	if err := store.Load(); err != nil { ... }
//	sparseIndex.Rebuild(store.All())
//
// Each source lives in its own nested bucket, so re-ingesting a repository
// replaces exactly its chunks in one transaction.
package corpus
