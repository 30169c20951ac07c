package embedder

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultPoolBatchSize is the number of texts sent per provider call
const DefaultPoolBatchSize = 32

// PoolConfig bounds concurrent and per-second provider calls
type PoolConfig struct {
	Concurrency   int     // Parallel calls (default 4)
	RatePerSecond float64 // Calls per second; <= 0 disables pacing
	Burst         int     // Limiter burst (default Concurrency)
	BatchSize     int     // Texts per call (default 32, max MaxBatchSize); 1 embeds text by text
}

// DefaultPoolConfig returns 4 concurrent calls of 32 texts without rate limiting
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Concurrency: 4, BatchSize: DefaultPoolBatchSize}
}

// Pool embeds many texts through a single Embedder with bounded concurrency
// and pacing. Wrap the Embedder with WithRetry to retry failed calls.
type Pool struct {
	embedder  Embedder
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
	batchSize int
	logger    *slog.Logger
}

// NewPool creates a pool around e
func NewPool(e Embedder, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultPoolConfig().Concurrency
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Concurrency
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultPoolBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		embedder:  e,
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// Embedder returns the wrapped embedder
func (p *Pool) Embedder() Embedder {
	return p.embedder
}

// EmbedAll embeds every text. vectors[i] is nil exactly when errs[i] is set;
// one failed text never stops the others. Texts go to the provider in
// batches; a batch the provider rejects is embedded again text by text.
func (p *Pool) EmbedAll(ctx context.Context, texts []string) ([][]float32, []error) {
	vectors := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		if err := p.sem.Acquire(ctx, 1); err != nil {
			fillErr(errs[start:], err)
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.sem.Release(1)
			p.embedRange(ctx, texts[start:end], vectors[start:end], errs[start:end])
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		p.logger.Warn("some texts could not be embedded", "failed", failed, "total", len(texts))
	}
	return vectors, errs
}

// embedRange fills vectors and errs for one batch of texts
func (p *Pool) embedRange(ctx context.Context, texts []string, vectors [][]float32, errs []error) {
	if len(texts) > 1 {
		if err := p.limiter.Wait(ctx); err != nil {
			fillErr(errs, err)
			return
		}
		resp, err := p.embedder.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: texts})
		if err == nil && complete(resp, len(texts)) {
			for i, emb := range resp.Embeddings {
				vectors[i] = emb.Vector
			}
			return
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			fillErr(errs, ctxErr)
			return
		}
		p.logger.Debug("batch embedding failed, retrying texts one by one", "texts", len(texts), "error", err)
	}

	for i, text := range texts {
		vectors[i], errs[i] = p.embedOne(ctx, text)
	}
}

func (p *Pool) embedOne(ctx context.Context, text string) ([]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	emb, err := p.embedder.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
	if err != nil {
		var ee *EmbeddingError
		if !errors.As(err, &ee) {
			err = &EmbeddingError{Provider: p.embedder.Provider(), Err: err}
		}
		return nil, err
	}
	return emb.Vector, nil
}

// complete reports whether resp holds one non-empty embedding per text
func complete(resp *BatchEmbeddingResponse, n int) bool {
	if resp == nil || len(resp.Embeddings) != n {
		return false
	}
	for _, emb := range resp.Embeddings {
		if emb == nil || len(emb.Vector) == 0 {
			return false
		}
	}
	return true
}

func fillErr(errs []error, err error) {
	for i := range errs {
		errs[i] = err
	}
}
