package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// Chroma metadata keys
const (
	MetaSource = "source"
	MetaPath   = "path"
	MetaTag    = "language"
)

// DefaultChromaURL is the address of a local Chroma server
const DefaultChromaURL = "http://localhost:8000"

// chromaBatchSize bounds the records sent in one Add call
const chromaBatchSize = 256

// EmbedFunc embeds texts in order. It lets Chroma embed documents and
// queries with the same provider the dense index uses.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// ChromaConfig configures a ChromaStore
type ChromaConfig struct {
	BaseURL    string
	Collection string
	Embed      EmbedFunc
}

// ChromaStore implements Store on a Chroma collection over HTTP.
// Replace is a delete followed by adds and is not atomic.
type ChromaStore struct {
	client chroma.Client
	col    chroma.Collection
}

// NewChromaStore connects to Chroma and gets or creates the collection
func NewChromaStore(ctx context.Context, cfg ChromaConfig) (*ChromaStore, error) {
	if cfg.Embed == nil {
		return nil, fmt.Errorf("%w: chroma store needs an embedding function", types.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultChromaURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	col, err := client.GetOrCreateCollection(ctx, cfg.Collection,
		chroma.WithEmbeddingFunctionCreate(&chromaEmbeddingFunction{embed: cfg.Embed}),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to open collection %s: %w", cfg.Collection, err)
	}

	return &ChromaStore{client: client, col: col}, nil
}

// Upsert adds records in batches. Existing ids are overwritten.
func (c *ChromaStore) Upsert(ctx context.Context, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}

	for start := 0; start < len(records); start += chromaBatchSize {
		end := min(start+chromaBatchSize, len(records))
		batch := records[start:end]

		ids := make([]chroma.DocumentID, len(batch))
		texts := make([]string, len(batch))
		embs := make([]embeddings.Embedding, len(batch))
		metas := make([]chroma.DocumentMetadata, len(batch))
		for i, r := range batch {
			ids[i] = chroma.DocumentID(r.ID)
			texts[i] = r.Text
			embs[i] = embeddings.NewEmbeddingFromFloat32(unitVector(r.Vector))
			metas[i] = chroma.NewDocumentMetadata(chromaAttributes(r)...)
		}

		err := c.col.Upsert(ctx,
			chroma.WithIDs(ids...),
			chroma.WithTexts(texts...),
			chroma.WithEmbeddings(embs...),
			chroma.WithMetadatas(metas...),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert %d records: %w", len(batch), err)
		}
	}
	return nil
}

// Replace deletes every record of source, then adds records
func (c *ChromaStore) Replace(ctx context.Context, source string, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	err := c.col.Delete(ctx, chroma.WithWhereDelete(chroma.EqString(MetaSource, source)))
	if err != nil {
		return fmt.Errorf("failed to delete source %s: %w", source, err)
	}
	return c.Upsert(ctx, records)
}

// Query asks Chroma for the k nearest records. The collection keeps Chroma's
// default squared L2 space. Stored and query vectors are scaled to unit length,
// so cosine similarity is 1 - d/2 whatever the provider returns.
func (c *ChromaStore) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if err := validateQuery(vector, k); err != nil {
		return nil, err
	}

	r, err := c.col.Query(ctx,
		chroma.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(unitVector(vector))),
		chroma.WithNResults(k),
		chroma.WithIncludeQuery(chroma.IncludeDocuments, chroma.IncludeMetadatas, chroma.IncludeDistances),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chroma: %w", err)
	}

	idGroups := r.GetIDGroups()
	if len(idGroups) == 0 {
		return []Hit{}, nil
	}
	ids := idGroups[0]
	var docs chroma.Documents
	if g := r.GetDocumentsGroups(); len(g) > 0 {
		docs = g[0]
	}
	var metas chroma.DocumentMetadatas
	if g := r.GetMetadatasGroups(); len(g) > 0 {
		metas = g[0]
	}
	var dists embeddings.Distances
	if g := r.GetDistancesGroups(); len(g) > 0 {
		dists = g[0]
	}

	hits := make([]Hit, 0, len(ids))
	for i, id := range ids {
		h := Hit{Record: Record{ID: string(id)}}
		if i < len(docs) && docs[i] != nil {
			h.Text = docs[i].ContentString()
		}
		if i < len(metas) && metas[i] != nil {
			h.Source, _ = metas[i].GetString(MetaSource)
			h.Path, _ = metas[i].GetString(MetaPath)
			tag, _ := metas[i].GetString(MetaTag)
			h.Tag = types.LanguageTag(tag)
		}
		if i < len(dists) {
			h.Score = distanceToSimilarity(float64(dists[i]))
		}
		hits = append(hits, h)
	}
	sortHits(hits)
	return hits, nil
}

// Count returns the number of records in the collection
func (c *ChromaStore) Count(ctx context.Context) (int, error) {
	n, err := c.col.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection: %w", err)
	}
	return n, nil
}

// Close releases the HTTP client
func (c *ChromaStore) Close() error {
	return c.client.Close()
}

// chromaAttributes converts a record's metadata into Chroma attributes
func chromaAttributes(r Record) []*chroma.MetaAttribute {
	pairs := metadataPairs(r)
	attrs := make([]*chroma.MetaAttribute, len(pairs))
	for i, p := range pairs {
		attrs[i] = chroma.NewStringAttribute(p[0], p[1])
	}
	return attrs
}

// metadataPairs flattens provenance and metadata into key/value pairs:
// source, path and language first, then the rest sorted by key
func metadataPairs(r Record) [][2]string {
	pairs := [][2]string{
		{MetaSource, r.Source},
		{MetaPath, r.Path},
		{MetaTag, string(r.Tag)},
	}

	keys := make([]string, 0, len(r.Metadata))
	for k := range r.Metadata {
		switch k {
		case MetaSource, MetaPath, MetaTag:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, r.Metadata[k]})
	}
	return pairs
}

// unitVector returns v scaled to length 1. A zero vector is returned as is.
func unitVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// distanceToSimilarity converts a squared L2 distance between unit vectors
// into cosine similarity, clamped to [-1,1]
func distanceToSimilarity(d float64) float64 {
	s := 1 - d/2
	if s < -1 {
		return -1
	}
	if s > 1 {
		return 1
	}
	return s
}

// chromaEmbeddingFunction adapts an EmbedFunc to Chroma's interface
type chromaEmbeddingFunction struct {
	embed EmbedFunc
}

func (f *chromaEmbeddingFunction) EmbedDocuments(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	vectors, err := f.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([]embeddings.Embedding, len(vectors))
	for i, v := range vectors {
		out[i] = embeddings.NewEmbeddingFromFloat32(unitVector(v))
	}
	return out, nil
}

func (f *chromaEmbeddingFunction) EmbedQuery(ctx context.Context, text string) (embeddings.Embedding, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty query")
	}
	vectors, err := f.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return embeddings.NewEmbeddingFromFloat32(unitVector(vectors[0])), nil
}
