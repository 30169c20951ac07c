// Package types provides shared type definitions for the code retrieval engine.
//
// The types here cross package boundaries: the ingestion pipeline produces
// Chunks, the indexes store them, and the searcher returns ScoredResults that
// point back at them.
//
// # Core Types
//
// LanguageTag identifies the language of a source file. The set is closed and
// known at build time:
//
//	tag := types.TagGo
//	if tag == types.Unknown {
//	    // skipped by the pipeline
//	}
//
// Chunk is a bounded slice of one file's decoded text. Offsets are counted in
// characters (Unicode code points), not bytes:
//
//	chunk := types.Chunk{
//	    ID:          types.ChunkID("https://github.com/acme/repo", "main.go", 0),
//	    Path:        "main.go",
//	    Tag:         types.TagGo,
//	    StartOffset: 0,
//	    EndOffset:   1500,
//	}
//
// ScoredResult carries the fused score together with both component signals,
// so callers can see why a chunk ranked where it did.
//
// # Reports
//
// IngestionReport aggregates per-file outcomes of one ingestion run. Failures
// never abort a run; they are recorded as SkippedFile entries instead.
//
// # Errors
//
// ErrInvalidInput marks caller mistakes (bad topK, empty root path).
// ErrIndexUnavailable is returned only when every index failed during a search.
package types
