package sparse

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// Okapi BM25 parameters
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Hit is one scored chunk
type Hit struct {
	ID    string
	Score float64 // Normalized into (0,1]
	Raw   float64 // Unnormalized BM25 score
}

type posting struct {
	doc int32
	tf  int32
}

// Snapshot is an immutable BM25 index over one corpus
type Snapshot struct {
	ids        []string
	lengths    []int32
	avgLen     float64
	postings   map[string][]posting
	generation uint64
}

// Len returns the number of indexed chunks
func (s *Snapshot) Len() int {
	return len(s.ids)
}

// Generation identifies the rebuild that produced the snapshot
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// Index holds the current snapshot
type Index struct {
	k1, b   float64
	current atomic.Pointer[Snapshot]
	gen     atomic.Uint64
}

// Option configures an Index
type Option func(*Index)

// WithParams overrides k1 and b
func WithParams(k1, b float64) Option {
	return func(ix *Index) {
		ix.k1 = k1
		ix.b = b
	}
}

// New returns an empty index
func New(opts ...Option) *Index {
	ix := &Index{k1: DefaultK1, b: DefaultB}
	for _, opt := range opts {
		opt(ix)
	}
	ix.current.Store(&Snapshot{postings: map[string][]posting{}})
	return ix
}

// Rebuild indexes chunks and swaps the result in. Chunks with an id already
// seen are ignored. Searches running against the previous snapshot finish
// undisturbed.
func (ix *Index) Rebuild(chunks []types.Chunk) *Snapshot {
	snap := build(chunks)
	snap.generation = ix.gen.Add(1)
	ix.current.Store(snap)
	return snap
}

func build(chunks []types.Chunk) *Snapshot {
	snap := &Snapshot{
		ids:      make([]string, 0, len(chunks)),
		lengths:  make([]int32, 0, len(chunks)),
		postings: make(map[string][]posting),
	}
	seen := make(map[string]struct{}, len(chunks))

	var total int64
	for _, c := range chunks {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}

		doc := int32(len(snap.ids))
		terms := Tokenize(c.Text)
		snap.ids = append(snap.ids, c.ID)
		snap.lengths = append(snap.lengths, int32(len(terms)))
		total += int64(len(terms))

		tf := make(map[string]int32, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		for t, n := range tf {
			snap.postings[t] = append(snap.postings[t], posting{doc: doc, tf: n})
		}
	}
	if len(snap.ids) > 0 {
		snap.avgLen = float64(total) / float64(len(snap.ids))
	}
	return snap
}

// Snapshot returns the current snapshot
func (ix *Index) Snapshot() *Snapshot {
	return ix.current.Load()
}

// Len returns the number of chunks in the current snapshot
func (ix *Index) Len() int {
	return ix.Snapshot().Len()
}

// Generation returns the current snapshot's generation, 0 before the first
// rebuild
func (ix *Index) Generation() uint64 {
	return ix.Snapshot().generation
}

// Search returns the k best chunks for query against the current snapshot.
// An empty corpus or a query without terms yields no hits.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", types.ErrInvalidInput, k)
	}
	return ix.search(ctx, ix.Snapshot(), query, k)
}

func (ix *Index) search(ctx context.Context, snap *Snapshot, query string, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(snap.ids)
	if n == 0 {
		return []Hit{}, nil
	}

	scores := make(map[int32]float64)
	for _, term := range uniqueTerms(Tokenize(query)) {
		plist := snap.postings[term]
		if len(plist) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		df := float64(len(plist))
		idf := math.Log(1 + (float64(n)-df+0.5)/(df+0.5))
		for _, p := range plist {
			tf := float64(p.tf)
			norm := 1 - ix.b
			if snap.avgLen > 0 {
				norm += ix.b * float64(snap.lengths[p.doc]) / snap.avgLen
			}
			scores[p.doc] += idf * tf * (ix.k1 + 1) / (tf + ix.k1*norm)
		}
	}
	if len(scores) == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(scores))
	for doc, s := range scores {
		hits = append(hits, Hit{ID: snap.ids[doc], Raw: s})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Raw != hits[j].Raw {
			return hits[i].Raw > hits[j].Raw
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	best := hits[0].Raw
	for i := range hits {
		hits[i].Score = hits[i].Raw / best
	}
	return hits, nil
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
