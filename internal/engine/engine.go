package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hyunolike/learnathon-1st-team1/internal/config"
	"github.com/hyunolike/learnathon-1st-team1/internal/corpus"
	"github.com/hyunolike/learnathon-1st-team1/internal/dense"
	"github.com/hyunolike/learnathon-1st-team1/internal/embedder"
	"github.com/hyunolike/learnathon-1st-team1/internal/indexer"
	"github.com/hyunolike/learnathon-1st-team1/internal/repo"
	"github.com/hyunolike/learnathon-1st-team1/internal/searcher"
	"github.com/hyunolike/learnathon-1st-team1/internal/sparse"
	"github.com/hyunolike/learnathon-1st-team1/internal/storage"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// ErrIngestInProgress is returned when another ingestion run holds the lock
var ErrIngestInProgress = errors.New("ingestion already in progress")

// Fetcher materializes a remote repository as a local directory
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Cleanup(path string)
}

// IngestOptions narrows one ingestion run
type IngestOptions struct {
	Languages []types.LanguageTag // empty ingests every known language
}

// Status describes the indexed corpus
type Status struct {
	Chunks           int                       `json:"chunks"`
	Sources          []string                  `json:"sources"`
	PerTag           map[types.LanguageTag]int `json:"per_tag"`
	SparseGeneration uint64                    `json:"sparse_generation"`
	DenseAvailable   bool                      `json:"dense_available"`
	DenseRecords     int                       `json:"dense_records"`
	Provider         string                    `json:"embedding_provider,omitempty"`
	Model            string                    `json:"embedding_model,omitempty"`
	Backend          string                    `json:"vector_backend,omitempty"`
	Collection       string                    `json:"collection,omitempty"`
	LastIngest       *time.Time                `json:"last_ingest,omitempty"`
	Indexing         bool                      `json:"indexing"`
	Warnings         []string                  `json:"warnings,omitempty"`
}

// Engine ties the ingestion pipeline to both indexes and the corpus
type Engine struct {
	indexer  *indexer.Indexer
	corpus   *corpus.Store
	sparse   *sparse.Index
	dense    *dense.Index // nil when no vector backend could be opened
	store    storage.Store
	searcher *searcher.Searcher
	fetcher  Fetcher
	lock     indexer.IndexLock
	logger   *slog.Logger

	workers      int
	maxFileBytes int64
	languages    []types.LanguageTag
	backend      string
	collection   string
	warnings     []string // Startup problems, surfaced in Status

	closeOnce sync.Once
}

// Option configures an Engine built with New
type Option func(*engineOptions)

type engineOptions struct {
	fetcher      Fetcher
	store        storage.Store
	logger       *slog.Logger
	searchOpts   []searcher.Option
	workers      int
	maxFileBytes int64
	languages    []types.LanguageTag
	backend      string
	collection   string
	warnings     []string
}

// WithFetcher sets how IngestURL obtains repositories
func WithFetcher(f Fetcher) Option {
	return func(o *engineOptions) { o.fetcher = f }
}

// WithStore hands ownership of the vector store to the engine, which closes
// it in Close and reports its count in Status
func WithStore(s storage.Store, backend, collection string) Option {
	return func(o *engineOptions) {
		o.store = s
		o.backend = backend
		o.collection = collection
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSearchOptions passes options through to the searcher
func WithSearchOptions(opts ...searcher.Option) Option {
	return func(o *engineOptions) { o.searchOpts = append(o.searchOpts, opts...) }
}

// WithWorkers sets the number of concurrent file workers
func WithWorkers(n int) Option {
	return func(o *engineOptions) { o.workers = n }
}

// WithMaxFileBytes sets the size above which files are skipped
func WithMaxFileBytes(n int64) Option {
	return func(o *engineOptions) { o.maxFileBytes = n }
}

// WithLanguages sets the default language filter
func WithLanguages(tags []types.LanguageTag) Option {
	return func(o *engineOptions) { o.languages = tags }
}

func withWarnings(w []string) Option {
	return func(o *engineOptions) { o.warnings = append(o.warnings, w...) }
}

// New assembles an engine from a corpus and an optional dense index
func New(c *corpus.Store, dn *dense.Index, opts ...Option) *Engine {
	o := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.fetcher == nil {
		o.fetcher = repo.NewGitSource("", repo.WithLogger(o.logger))
	}

	sp := sparse.New()
	searchOpts := append([]searcher.Option{searcher.WithLogger(o.logger)}, o.searchOpts...)

	e := &Engine{
		indexer:      indexer.New(indexer.WithLogger(o.logger)),
		corpus:       c,
		sparse:       sp,
		dense:        dn,
		store:        o.store,
		fetcher:      o.fetcher,
		logger:       o.logger,
		workers:      o.workers,
		maxFileBytes: o.maxFileBytes,
		languages:    o.languages,
		backend:      o.backend,
		collection:   o.collection,
		warnings:     o.warnings,
	}
	// a nil *dense.Index must reach the searcher as a nil interface
	var denseIndex searcher.DenseIndex
	if dn != nil {
		denseIndex = dn
	}
	e.searcher = searcher.New(sp, denseIndex, c, searchOpts...)
	return e
}

// Open builds an engine from configuration. The corpus must open; a vector
// backend or embedding provider that cannot be set up leaves the engine in
// sparse-only mode with a warning instead.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	c, err := corpus.Open(cfg.CorpusPath())
	if err != nil {
		return nil, err
	}

	languages, err := cfg.LanguageTags()
	if err != nil {
		c.Close()
		return nil, err
	}

	dn, store, warnings := openDense(ctx, cfg, logger)

	opts := []Option{
		WithLogger(logger),
		WithFetcher(repo.NewGitSource(cfg.Ingest.CloneBase, repo.WithLogger(logger))),
		WithWorkers(cfg.Ingest.Workers),
		WithMaxFileBytes(cfg.Ingest.MaxFileBytes),
		WithLanguages(languages),
		WithSearchOptions(
			searcher.WithWeights(cfg.Weights()),
			searcher.WithDenseTimeout(cfg.Search.DenseTimeout),
			searcher.WithCache(cfg.Search.CacheSize, cfg.Search.CacheTTL),
		),
		withWarnings(warnings),
	}
	if store != nil {
		opts = append(opts, WithStore(store, strings.ToLower(cfg.Vector.Backend), cfg.Vector.Collection))
	}

	e := New(c, dn, opts...)
	if err := e.Load(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func openDense(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dense.Index, storage.Store, []string) {
	provider := cfg.Embedding.Provider
	if provider == "" {
		provider = embedder.DetectProvider()
	}
	emb, err := embedder.New(embedder.Config{
		Provider:  provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		logger.Warn("embedding provider unavailable, running sparse only", "provider", provider, "error", err)
		return nil, nil, []string{fmt.Sprintf("embedding provider %s unavailable: %v", provider, err)}
	}

	pool := embedder.NewPool(embedder.WithRetry(emb, embedder.DefaultRetryConfig()), embedder.PoolConfig{
		Concurrency:   cfg.Embedding.Concurrency,
		RatePerSecond: cfg.Embedding.RatePerSecond,
		BatchSize:     cfg.Embedding.BatchSize,
	}, logger)

	store, err := storage.Open(ctx, storage.Config{
		Backend:     cfg.Vector.Backend,
		SQLitePath:  cfg.VectorPath(),
		ChromaURL:   cfg.Vector.ChromaURL,
		Collection:  cfg.Vector.Collection,
		DatabaseURL: cfg.Vector.DatabaseURL,
		Embed:       poolEmbedFunc(pool),
	})
	if err != nil {
		emb.Close()
		logger.Warn("vector backend unavailable, running sparse only", "backend", cfg.Vector.Backend, "error", err)
		return nil, nil, []string{fmt.Sprintf("vector backend %s unavailable: %v", cfg.Vector.Backend, err)}
	}

	logger.Info("dense index ready",
		"provider", emb.Provider(),
		"model", emb.Model(),
		"backend", cfg.Vector.Backend)
	return dense.New(pool, store, dense.WithSearchTimeout(cfg.Search.DenseTimeout), dense.WithLogger(logger)), store, nil
}

// poolEmbedFunc adapts a Pool to the embedding function some stores need.
// Any failed text fails the whole call.
func poolEmbedFunc(pool *embedder.Pool) storage.EmbedFunc {
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors, errs := pool.EmbedAll(ctx, texts)
		if err := errors.Join(errs...); err != nil {
			return nil, err
		}
		return vectors, nil
	}
}

// Load restores the corpus from disk and rebuilds the sparse index
func (e *Engine) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.corpus.Load(); err != nil {
		return err
	}
	snap := e.sparse.Rebuild(e.corpus.All())
	e.searcher.InvalidateCache()
	e.logger.Info("corpus loaded", "chunks", snap.Len(), "sources", len(e.corpus.Sources()))
	return nil
}

// IngestRepository ingests the tree at rootPath, replacing whatever was
// previously ingested from the same root. Embedding problems are reported
// as warnings in the report; the sparse index is updated regardless.
func (e *Engine) IngestRepository(ctx context.Context, rootPath string, opts *IngestOptions) (*types.IngestionReport, error) {
	if !e.lock.TryAcquire() {
		return nil, ErrIngestInProgress
	}
	defer e.lock.Release()

	return e.ingest(ctx, rootPath, "", opts)
}

// IngestURL clones url, ingests it with the url as source and removes the
// clone afterwards, whatever the outcome
func (e *Engine) IngestURL(ctx context.Context, url string, opts *IngestOptions) (*types.IngestionReport, error) {
	if !e.lock.TryAcquire() {
		return nil, ErrIngestInProgress
	}
	defer e.lock.Release()

	dir, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer e.fetcher.Cleanup(dir)

	return e.ingest(ctx, dir, strings.TrimSpace(url), opts)
}

func (e *Engine) ingest(ctx context.Context, root, source string, opts *IngestOptions) (*types.IngestionReport, error) {
	start := time.Now()

	tags := e.languages
	if opts != nil && len(opts.Languages) > 0 {
		tags = opts.Languages
	}

	res, err := e.indexer.Ingest(ctx, root, &indexer.Options{
		Source:       source,
		Tags:         tags,
		Workers:      e.workers,
		MaxFileBytes: e.maxFileBytes,
	})
	if err != nil {
		// a cancelled run is not committed
		return nil, err
	}
	report := res.Report

	if err := e.corpus.Replace(report.Source, res.Chunks); err != nil {
		return nil, fmt.Errorf("failed to update corpus: %w", err)
	}
	e.sparse.Rebuild(e.corpus.All())

	if e.dense == nil {
		report.Warnings = append(report.Warnings, "dense index unavailable, chunks are searchable by keyword only")
	} else {
		stats, err := e.dense.Replace(ctx, report.Source, res.Chunks)
		report.Embedded = stats.Embedded
		report.EmbedDropped = stats.Dropped
		report.Warnings = append(report.Warnings, stats.Errors...)
		if err != nil {
			e.logger.Warn("dense indexing failed", "source", report.Source, "error", err)
			report.Warnings = append(report.Warnings, fmt.Sprintf("dense indexing failed: %v", err))
		}
	}

	e.searcher.InvalidateCache()
	report.Duration = time.Since(start)

	e.logger.Info("repository ingested",
		"source", report.Source,
		"files", report.TotalFiles,
		"chunks", report.TotalChunks,
		"embedded", report.Embedded,
		"dropped", report.EmbedDropped,
		"duration", report.Duration)
	return report, nil
}

// Search runs a hybrid query with the default weights
func (e *Engine) Search(ctx context.Context, query string, topK int) (*searcher.Response, error) {
	return e.SearchWithWeights(ctx, query, topK, nil)
}

// SearchWithWeights runs a hybrid query. nil weights use the defaults.
func (e *Engine) SearchWithWeights(ctx context.Context, query string, topK int, w *types.FusionWeights) (*searcher.Response, error) {
	return e.searcher.Search(ctx, searcher.Request{Query: query, TopK: topK, Weights: w})
}

// Weights returns the default fusion weights
func (e *Engine) Weights() types.FusionWeights {
	return e.searcher.Weights()
}

// Indexing reports whether an ingestion run is in progress
func (e *Engine) Indexing() bool {
	return e.lock.Held()
}

// Status reports corpus and index statistics
func (e *Engine) Status(ctx context.Context) Status {
	st := Status{
		Chunks:           e.corpus.Len(),
		Sources:          e.corpus.Sources(),
		PerTag:           e.corpus.TagCounts(),
		SparseGeneration: e.sparse.Generation(),
		DenseAvailable:   e.dense != nil,
		Backend:          e.backend,
		Collection:       e.collection,
		Indexing:         e.lock.Held(),
		Warnings:         append([]string(nil), e.warnings...),
	}
	if last := e.corpus.LastIngest(); !last.IsZero() {
		st.LastIngest = &last
	}

	if e.dense != nil {
		if emb := e.dense.Embedder(); emb != nil {
			st.Provider = emb.Provider()
			st.Model = emb.Model()
		}
		n, err := e.dense.Count(ctx)
		if err != nil {
			st.Warnings = append(st.Warnings, fmt.Sprintf("vector count unavailable: %v", err))
		} else {
			st.DenseRecords = n
		}
	}
	return st
}

// Close releases the corpus, the vector store and the embedder
func (e *Engine) Close() error {
	var errs []error
	e.closeOnce.Do(func() {
		if e.dense != nil {
			if emb := e.dense.Embedder(); emb != nil {
				errs = append(errs, emb.Close())
			}
		}
		if e.store != nil {
			errs = append(errs, e.store.Close())
		}
		errs = append(errs, e.corpus.Close())
	})
	return errors.Join(errs...)
}
