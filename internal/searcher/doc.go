// Package searcher implements hybrid code search: BM25 keyword matching and
// vector similarity queried side by side, fused by a weighted sum.
//
// # Basic Usage
//
//	s := searcher.New(sparseIndex, denseIndex, corpus,
//	    searcher.WithCache(searcher.DefaultCacheSize, searcher.DefaultCacheTTL))
//
//	resp, err := s.Search(ctx, searcher.Request{
//	    Query: "retry with exponential backoff",
//	    TopK:  5,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("%s:%d (%.3f)\n", r.Path, r.Locator.StartLine, r.Score)
//	}
//
// # Fusion
//
// Each index is asked for TopK candidates. For every chunk in the union:
//
//	fused = sparseWeight*sparseScore + denseWeight*denseScore
//
// where a chunk absent from one candidate set scores 0 for that signal.
// Sparse scores are BM25 divided by the query's best score; dense scores are
// cosine similarity clamped to [0,1]. The weights default to 0.5/0.5, each
// must lie in [0,1], and they need not sum to 1, so fused scores order
// results but carry no absolute meaning.
//
// Ties are broken by the dense score, then by chunk id, so equal inputs
// always produce the same order.
//
// # Degradation
//
// The dense side runs under its own timeout. When it fails the response
// holds sparse-only results, Degraded is set and Warnings explains why.
// Only when both indexes fail does Search return an error, wrapping
// types.ErrIndexUnavailable.
//
// # Caching
//
// The optional LRU cache is keyed by query, TopK, weights and the sparse
// index generation. Degraded responses are never cached, and entries expire
// after the configured TTL. Call InvalidateCache after re-ingestion.
package searcher
