// Package sparse implements the lexical half of hybrid retrieval: an
// in-memory Okapi BM25 index over chunk text.
//
// The index is rebuilt from the whole corpus after each ingestion. Rebuild
// constructs an immutable Snapshot and publishes it atomically, so searches
// never block on a rebuild and always score against one consistent corpus.
//
//	idx := sparse.New()
//	idx.Rebuild(chunks)
//	hits, err := idx.Search(ctx, "parse config file", 5)
//
// Scores are divided by the best score of the query, so the top hit scores
// 1 and the rest fall in (0,1].
package sparse
