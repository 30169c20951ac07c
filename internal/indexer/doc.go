// Package indexer runs the ingestion pipeline over a source tree.
//
// For every regular file under the root the pipeline classifies the language,
// decodes the bytes and splits the text into chunks:
//
//	idx := indexer.New(indexer.WithLogger(logger))
//	res, err := idx.Ingest(ctx, "/path/to/repo", &indexer.Options{
//	    Source: "https://github.com/acme/repo",
//	    Tags:   []types.LanguageTag{types.TagGo, types.TagMarkdown},
//	})
//	fmt.Printf("%d files, %d chunks\n", res.Report.TotalFiles, res.Report.TotalChunks)
//
// # Concurrent Processing
//
// Files are processed by a bounded errgroup (Options.Workers, default
// runtime.NumCPU()). Each worker reports into a mutex-guarded collector, and
// the final chunk list is sorted by path and ordinal so repeated runs over the
// same tree give identical output.
//
// # Failure Handling
//
// A file that cannot be classified, decoded or chunked is recorded in
// IngestionReport.Skipped with a reason and the run continues. Only invalid
// input (an empty, missing or non-directory root) fails the call up front.
//
// Cancellation is checked before each file. A cancelled run returns the
// chunks produced so far together with the wrapped context error.
//
// # Exclusive Runs
//
// IndexLock is a non-blocking lock that callers use to reject a second
// ingestion while one is still running.
package indexer
