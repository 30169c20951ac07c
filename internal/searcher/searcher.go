package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hyunolike/learnathon-1st-team1/internal/dense"
	"github.com/hyunolike/learnathon-1st-team1/internal/sparse"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// DefaultDenseTimeout bounds the dense half of a search
const DefaultDenseTimeout = 10 * time.Second

// Cache defaults
const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 5 * time.Minute
)

// SparseIndex is the lexical index queried by the searcher
type SparseIndex interface {
	Search(ctx context.Context, query string, k int) ([]sparse.Hit, error)
	Generation() uint64
}

// DenseIndex is the vector index queried by the searcher
type DenseIndex interface {
	Search(ctx context.Context, query string, k int) ([]dense.Hit, error)
}

// ChunkLookup resolves chunk ids to their text and location
type ChunkLookup interface {
	Lookup(id string) (types.Chunk, bool)
}

// Request contains parameters for a search operation
type Request struct {
	Query   string
	TopK    int
	Weights *types.FusionWeights // nil uses the searcher's defaults
}

// Response contains search results and metadata
type Response struct {
	Results          []types.ScoredResult `json:"results"`
	Warnings         []string             `json:"warnings,omitempty"`
	SparseCandidates int                  `json:"sparse_candidates"`
	DenseCandidates  int                  `json:"dense_candidates"`
	Degraded         bool                 `json:"degraded"`
	Duration         time.Duration        `json:"duration_ns"`
	CacheHit         bool                 `json:"cache_hit"`
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher fuses sparse and dense retrieval into one ranking
type Searcher struct {
	sparse       SparseIndex
	dense        DenseIndex
	lookup       ChunkLookup
	weights      types.FusionWeights
	denseTimeout time.Duration
	logger       *slog.Logger

	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheTTL time.Duration
	cacheMu  sync.RWMutex
}

// Option configures a Searcher
type Option func(*Searcher)

// WithWeights sets the default fusion weights
func WithWeights(w types.FusionWeights) Option {
	return func(s *Searcher) { s.weights = w }
}

// WithDenseTimeout overrides DefaultDenseTimeout
func WithDenseTimeout(d time.Duration) Option {
	return func(s *Searcher) {
		if d > 0 {
			s.denseTimeout = d
		}
	}
}

// WithCache enables the result cache. size <= 0 disables it.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Searcher) {
		if size <= 0 {
			s.cache = nil
			return
		}
		cache, err := lru.New[[32]byte, *cacheEntry](size)
		if err != nil {
			return
		}
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Searcher. dense may be nil, in which case every search is
// sparse-only and flagged as degraded.
func New(sp SparseIndex, dn DenseIndex, lookup ChunkLookup, opts ...Option) *Searcher {
	s := &Searcher{
		sparse:       sp,
		dense:        dn,
		lookup:       lookup,
		weights:      types.DefaultWeights(),
		denseTimeout: DefaultDenseTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the default fusion weights
func (s *Searcher) Weights() types.FusionWeights {
	return s.weights
}

// Search runs the query against both indexes concurrently and fuses the
// candidates. A dense failure degrades to sparse-only results with a
// warning; only the failure of both indexes is an error.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	if req.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", types.ErrInvalidInput, req.TopK)
	}
	weights := s.weights
	if req.Weights != nil {
		weights = *req.Weights
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return &Response{Results: []types.ScoredResult{}, Duration: time.Since(startTime)}, nil
	}

	key := s.cacheKey(query, req.TopK, weights)
	if cached := s.checkCache(key); cached != nil {
		cached.CacheHit = true
		cached.Duration = time.Since(startTime)
		return cached, nil
	}

	response, err := s.hybridSearch(ctx, query, req.TopK, weights)
	if err != nil {
		return nil, err
	}
	response.Duration = time.Since(startTime)

	if !response.Degraded {
		s.storeInCache(key, response)
	}
	return response, nil
}

type sparseResult struct {
	hits []sparse.Hit
	err  error
}

type denseResult struct {
	hits []dense.Hit
	err  error
}

func (s *Searcher) runSparse(ctx context.Context, query string, k int, out chan<- sparseResult) {
	var res sparseResult
	if s.sparse == nil {
		res.err = fmt.Errorf("sparse index not configured")
	} else {
		res.hits, res.err = s.sparse.Search(ctx, query, k)
	}
	out <- res
}

func (s *Searcher) runDense(ctx context.Context, query string, k int, out chan<- denseResult) {
	var res denseResult
	if s.dense == nil {
		res.err = fmt.Errorf("dense index not configured")
	} else {
		ctx, cancel := context.WithTimeout(ctx, s.denseTimeout)
		res.hits, res.err = s.dense.Search(ctx, query, k)
		cancel()
	}
	out <- res
}

func (s *Searcher) hybridSearch(ctx context.Context, query string, k int, w types.FusionWeights) (*Response, error) {
	sparseChan := make(chan sparseResult, 1)
	denseChan := make(chan denseResult, 1)

	go s.runSparse(ctx, query, k, sparseChan)
	go s.runDense(ctx, query, k, denseChan)

	var sparseRes sparseResult
	var denseRes denseResult
	var sparseDone, denseDone bool
	for !sparseDone || !denseDone {
		select {
		case sparseRes = <-sparseChan:
			sparseDone = true
		case denseRes = <-denseChan:
			denseDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if sparseRes.err != nil && denseRes.err != nil {
		return nil, fmt.Errorf("%w: sparse: %v; dense: %v", types.ErrIndexUnavailable, sparseRes.err, denseRes.err)
	}

	resp := &Response{
		SparseCandidates: len(sparseRes.hits),
		DenseCandidates:  len(denseRes.hits),
	}
	if denseRes.err != nil {
		resp.Degraded = true
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("dense retrieval unavailable, showing keyword results only: %v", denseRes.err))
		s.logger.Warn("dense search failed, degrading to sparse", "error", denseRes.err)
		denseRes.hits = nil
	}
	if sparseRes.err != nil {
		resp.Degraded = true
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("keyword retrieval unavailable, showing semantic results only: %v", sparseRes.err))
		s.logger.Warn("sparse search failed, degrading to dense", "error", sparseRes.err)
		sparseRes.hits = nil
	}

	fused := Fuse(sparseRes.hits, denseRes.hits, w)
	if len(fused) > k {
		fused = fused[:k]
	}
	s.attach(fused, denseRes.hits)
	resp.Results = fused
	return resp, nil
}

// Fuse merges both candidate sets by weighted sum. A chunk missing from one
// set scores 0 for that signal. The result is ordered by fused score, then
// dense score, both descending, then chunk id.
func Fuse(sparseHits []sparse.Hit, denseHits []dense.Hit, w types.FusionWeights) []types.ScoredResult {
	byID := make(map[string]*types.ScoredResult, len(sparseHits)+len(denseHits))
	get := func(id string) *types.ScoredResult {
		r, ok := byID[id]
		if !ok {
			r = &types.ScoredResult{ChunkID: id}
			byID[id] = r
		}
		return r
	}

	for _, h := range sparseHits {
		get(h.ID).SparseScore = h.Score
	}
	for _, h := range denseHits {
		get(h.ID).DenseScore = h.Score
	}

	results := make([]types.ScoredResult, 0, len(byID))
	for _, r := range byID {
		r.Score = w.Sparse*r.SparseScore + w.Dense*r.DenseScore
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DenseScore != b.DenseScore {
			return a.DenseScore > b.DenseScore
		}
		return a.ChunkID < b.ChunkID
	})
	return results
}

// attach fills text and location from the chunk corpus, falling back to
// what the vector store returned
func (s *Searcher) attach(results []types.ScoredResult, denseHits []dense.Hit) {
	var fallback map[string]dense.Hit
	for i := range results {
		r := &results[i]
		if s.lookup != nil {
			if c, ok := s.lookup.Lookup(r.ChunkID); ok {
				r.Source = c.Source
				r.Path = c.Path
				r.Tag = c.Tag
				r.Text = c.Text
				r.Locator = &types.Locator{StartLine: c.StartLine, EndLine: c.EndLine}
				continue
			}
		}
		if fallback == nil {
			fallback = make(map[string]dense.Hit, len(denseHits))
			for _, h := range denseHits {
				fallback[h.ID] = h
			}
		}
		if h, ok := fallback[r.ChunkID]; ok {
			r.Source = h.Source
			r.Path = h.Path
			r.Tag = h.Tag
		}
	}
}

// cacheKey hashes everything that changes a result: query, k, weights and
// the sparse index generation
func (s *Searcher) cacheKey(query string, k int, w types.FusionWeights) [32]byte {
	var gen uint64
	if s.sparse != nil {
		gen = s.sparse.Generation()
	}
	h := sha256.New()
	h.Write([]byte(query))
	var buf [8]byte
	for _, v := range []uint64{uint64(k), math.Float64bits(w.Sparse), math.Float64bits(w.Dense), gen} {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(key [32]byte) *Response {
	if s.cache == nil {
		return nil
	}
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}
	response := copyResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

func (s *Searcher) storeInCache(key [32]byte, response *Response) {
	if s.cache == nil {
		return
	}
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(s.cacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response
func (s *Searcher) InvalidateCache() {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copyResponse creates a deep copy of a Response
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Warnings = append([]string(nil), src.Warnings...)
	dst.Results = make([]types.ScoredResult, len(src.Results))
	for i, r := range src.Results {
		dst.Results[i] = r
		if r.Locator != nil {
			loc := *r.Locator
			dst.Results[i].Locator = &loc
		}
	}
	return &dst
}
