// Package dense is the semantic half of hybrid retrieval. It embeds chunks
// through an embedder.Pool and keeps them in a storage.Store.
package dense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hyunolike/learnathon-1st-team1/internal/embedder"
	"github.com/hyunolike/learnathon-1st-team1/internal/storage"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// DefaultSearchTimeout bounds the query embedding plus the store lookup
const DefaultSearchTimeout = 10 * time.Second

// maxReportedErrors caps the failure samples kept in Stats
const maxReportedErrors = 5

// ErrNoVectors is returned by Replace when chunks were given but none could
// be embedded
var ErrNoVectors = errors.New("no chunk could be embedded")

// Stats summarizes one Replace
type Stats struct {
	Embedded int
	Dropped  int
	Errors   []string // First few embedding failures
}

// Hit is a chunk id with its clamped similarity in [0,1]
type Hit struct {
	ID     string
	Score  float64
	Source string
	Path   string
	Tag    types.LanguageTag
}

// Index embeds chunks and answers nearest-neighbour queries
type Index struct {
	pool          *embedder.Pool
	store         storage.Store
	searchTimeout time.Duration
	logger        *slog.Logger
}

// Option configures an Index
type Option func(*Index)

// WithSearchTimeout overrides DefaultSearchTimeout
func WithSearchTimeout(d time.Duration) Option {
	return func(ix *Index) {
		if d > 0 {
			ix.searchTimeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// New creates an Index over pool and store
func New(pool *embedder.Pool, store storage.Store, opts ...Option) *Index {
	ix := &Index{
		pool:          pool,
		store:         store,
		searchTimeout: DefaultSearchTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Replace embeds chunks and swaps them in as the complete record set of
// source. Chunks whose embedding failed are dropped and counted. The store
// is left untouched when every chunk failed.
func (ix *Index) Replace(ctx context.Context, source string, chunks []types.Chunk) (Stats, error) {
	var stats Stats
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, errs := ix.pool.EmbedAll(ctx, texts)
	records := make([]storage.Record, 0, len(chunks))
	for i, c := range chunks {
		if errs[i] != nil {
			stats.Dropped++
			if len(stats.Errors) < maxReportedErrors {
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s#%d: %v", c.Path, c.Ordinal, errs[i]))
			}
			ix.logger.Debug("dropping chunk from dense index", "path", c.Path, "ordinal", c.Ordinal, "error", errs[i])
			continue
		}
		records = append(records, storage.RecordFromChunk(c, vectors[i]))
	}
	stats.Embedded = len(records)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if len(chunks) > 0 && len(records) == 0 {
		return stats, fmt.Errorf("%w: %d chunks failed", ErrNoVectors, stats.Dropped)
	}

	if err := ix.store.Replace(ctx, source, records); err != nil {
		return stats, fmt.Errorf("failed to store vectors: %w", err)
	}

	ix.logger.Info("dense index updated", "source", source, "embedded", stats.Embedded, "dropped", stats.Dropped)
	return stats, nil
}

// Search embeds query and returns the k nearest chunks. Both steps share
// the search timeout.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", types.ErrInvalidInput, k)
	}
	if strings.TrimSpace(query) == "" {
		return []Hit{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, ix.searchTimeout)
	defer cancel()

	emb, err := ix.pool.Embedder().GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	found, err := ix.store.Query(ctx, emb.Vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	hits := make([]Hit, len(found))
	for i, h := range found {
		hits[i] = Hit{
			ID:     h.ID,
			Score:  clamp01(h.Score),
			Source: h.Source,
			Path:   h.Path,
			Tag:    h.Tag,
		}
	}
	return hits, nil
}

// Count returns the number of stored vectors
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}

// Embedder exposes the provider behind the pool
func (ix *Index) Embedder() embedder.Embedder {
	return ix.pool.Embedder()
}

// clamp01 maps cosine similarity onto the sparse score range; opposite
// vectors are as irrelevant as orthogonal ones
func clamp01(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
