package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyunolike/learnathon-1st-team1/internal/chunker"
	"github.com/hyunolike/learnathon-1st-team1/internal/language"
	"github.com/hyunolike/learnathon-1st-team1/internal/loader"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// DefaultMaxFileBytes skips generated blobs and vendored bundles
const DefaultMaxFileBytes = 2 << 20

// Skip reasons recorded in IngestionReport.Skipped
const (
	ReasonUnknownLanguage = "unknown language"
	ReasonFiltered        = "filtered by tag"
	ReasonLoadFailed      = "load failed"
	ReasonTooLarge        = "too large"
	ReasonEmpty           = "empty file"
)

// vcsDirs are version control metadata directories, never walked
var vcsDirs = map[string]bool{
	".git":   true,
	".hg":    true,
	".svn":   true,
	".bzr":   true,
	"_darcs": true,
	"CVS":    true,
	".jj":    true,
}

// Indexer coordinates the ingestion pipeline: walk -> classify -> load -> chunk
type Indexer struct {
	resolver *loader.Resolver
	chunker  *chunker.Chunker
	logger   *slog.Logger
}

// Option configures an Indexer
type Option func(*Indexer)

// WithResolver replaces the file loader
func WithResolver(r *loader.Resolver) Option {
	return func(idx *Indexer) { idx.resolver = r }
}

// WithLogger sets the logger used by the indexer and its default collaborators
func WithLogger(l *slog.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// Options controls a single ingestion run
type Options struct {
	Source       string              // Chunk provenance (default: absolute root path)
	Tags         []types.LanguageTag // Only ingest these languages (default: all)
	Workers      int                 // Concurrent file workers (default: runtime.NumCPU())
	MaxFileBytes int64               // Larger files are skipped (default: DefaultMaxFileBytes)
	Policies     *language.Policies  // Per-tag chunk policy overrides
}

// Result is the outcome of one ingestion run
type Result struct {
	Chunks []types.Chunk
	Report *types.IngestionReport
}

// New creates a new Indexer instance
func New(opts ...Option) *Indexer {
	idx := &Indexer{logger: slog.Default()}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.resolver == nil {
		idx.resolver = loader.NewResolver(loader.WithLogger(idx.logger))
	}
	if idx.chunker == nil {
		idx.chunker = chunker.New(idx.logger)
	}
	return idx
}

// candidate is a discovered regular file
type candidate struct {
	path string
	rel  string
	size int64
}

// outcome is the result of processing one file
type outcome struct {
	rel    string
	tag    types.LanguageTag
	chunks []types.Chunk
	skip   string
}

// collector gathers per-file outcomes from concurrent workers
type collector struct {
	mu     sync.Mutex
	chunks []types.Chunk
	report *types.IngestionReport
}

func (c *collector) add(o outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.skip != "" {
		c.report.Skipped = append(c.report.Skipped, types.SkippedFile{Path: o.rel, Reason: o.skip})
		return
	}
	c.chunks = append(c.chunks, o.chunks...)
	tc := c.report.PerTag[o.tag]
	tc.Files++
	tc.Chunks += len(o.chunks)
	c.report.PerTag[o.tag] = tc
	c.report.TotalFiles++
	c.report.TotalChunks += len(o.chunks)
}

// Ingest walks rootPath and turns every supported file into chunks. Per-file
// failures are recorded in the report and never abort the run. A cancelled
// context stops scheduling new files; the partial result is returned with
// the wrapped context error.
func (idx *Indexer) Ingest(ctx context.Context, rootPath string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	root, err := validateRoot(rootPath)
	if err != nil {
		return nil, err
	}

	source := opts.Source
	if source == "" {
		source = root
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	var filter map[types.LanguageTag]bool
	if len(opts.Tags) > 0 {
		filter = make(map[types.LanguageTag]bool, len(opts.Tags))
		for _, t := range opts.Tags {
			filter[t] = true
		}
	}

	start := time.Now()
	col := &collector{report: types.NewIngestionReport(source)}

	files, err := idx.discoverFiles(ctx, root, col)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)

	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			col.add(idx.processFile(f, source, filter, maxBytes, opts.Policies))
			return nil
		})
	}
	_ = g.Wait()

	result := finish(col, start)
	idx.logger.Info("ingestion finished",
		"source", source,
		"files", result.Report.TotalFiles,
		"chunks", result.Report.TotalChunks,
		"skipped", len(result.Report.Skipped),
		"duration", result.Report.Duration)

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("ingestion cancelled: %w", err)
	}
	return result, nil
}

func validateRoot(rootPath string) (string, error) {
	if strings.TrimSpace(rootPath) == "" {
		return "", fmt.Errorf("%w: root path is required", types.ErrInvalidInput)
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: root path %s does not exist", types.ErrInvalidInput, abs)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: root path %s is not a directory", types.ErrInvalidInput, abs)
	}
	return abs, nil
}

// discoverFiles lists regular files under root in lexical order. Unreadable
// directories are recorded as skipped.
func (idx *Indexer) discoverFiles(ctx context.Context, root string, col *collector) ([]candidate, error) {
	var files []candidate

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			col.add(outcome{rel: relPath(root, path), skip: fmt.Sprintf("%s: %v", ReasonLoadFailed, err)})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && vcsDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		// Symlinks are not followed
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			col.add(outcome{rel: relPath(root, path), skip: fmt.Sprintf("%s: %v", ReasonLoadFailed, err)})
			return nil
		}
		files = append(files, candidate{path: path, rel: relPath(root, path), size: info.Size()})
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return nil, err
	}
	return files, nil
}

// processFile classifies, loads and chunks one file
func (idx *Indexer) processFile(f candidate, source string, filter map[types.LanguageTag]bool,
	maxBytes int64, policies *language.Policies) outcome {

	out := outcome{rel: f.rel}

	tag := language.Classify(f.path)
	if tag == types.Unknown {
		idx.logger.Debug("skipping unclassified file", "path", f.rel)
		out.skip = ReasonUnknownLanguage
		return out
	}
	out.tag = tag

	if filter != nil && !filter[tag] {
		out.skip = ReasonFiltered
		return out
	}
	if f.size > maxBytes {
		out.skip = ReasonTooLarge
		return out
	}
	if f.size == 0 {
		out.skip = ReasonEmpty
		return out
	}

	record, err := idx.resolver.Load(f.path)
	if err != nil {
		idx.logger.Warn("failed to load file", "path", f.rel, "error", err)
		cause := err
		var lf *loader.LoadFailure
		if errors.As(err, &lf) {
			cause = lf.Cause
		}
		out.skip = fmt.Sprintf("%s: %v", ReasonLoadFailed, cause)
		return out
	}
	record.RelPath = f.rel
	record.Tag = tag

	out.chunks = idx.chunker.Chunk(record, source, policies.For(tag))
	if len(out.chunks) == 0 {
		out.skip = ReasonEmpty
	}
	return out
}

// finish orders the collected output deterministically
func finish(col *collector, start time.Time) *Result {
	col.mu.Lock()
	defer col.mu.Unlock()

	sort.Slice(col.chunks, func(i, j int) bool {
		a, b := col.chunks[i], col.chunks[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Ordinal < b.Ordinal
	})
	sort.SliceStable(col.report.Skipped, func(i, j int) bool {
		return col.report.Skipped[i].Path < col.report.Skipped[j].Path
	})

	col.report.Duration = time.Since(start)
	return &Result{Chunks: col.chunks, Report: col.report}
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
