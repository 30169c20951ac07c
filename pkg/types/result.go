package types

import "fmt"

// Default fusion weights give both signals equal say
const (
	DefaultSparseWeight = 0.5
	DefaultDenseWeight  = 0.5
	DefaultTopK         = 5
)

// FusionWeights scales the sparse and dense signals. They need not sum to 1.
type FusionWeights struct {
	Sparse float64 `json:"sparse" yaml:"sparse"`
	Dense  float64 `json:"dense" yaml:"dense"`
}

// DefaultWeights returns the 0.5/0.5 weighting
func DefaultWeights() FusionWeights {
	return FusionWeights{Sparse: DefaultSparseWeight, Dense: DefaultDenseWeight}
}

// Validate checks that both weights lie in [0,1]
func (w FusionWeights) Validate() error {
	if w.Sparse < 0 || w.Sparse > 1 {
		return fmt.Errorf("%w: sparse weight %.3f outside [0,1]", ErrInvalidInput, w.Sparse)
	}
	if w.Dense < 0 || w.Dense > 1 {
		return fmt.Errorf("%w: dense weight %.3f outside [0,1]", ErrInvalidInput, w.Dense)
	}
	return nil
}

// Locator points at the lines a result came from
type Locator struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// ScoredResult is one ranked search hit, produced fresh per query
type ScoredResult struct {
	ChunkID     string      `json:"chunk_id"`
	Score       float64     `json:"score"` // Fused score, higher is more relevant
	SparseScore float64     `json:"sparse_score"`
	DenseScore  float64     `json:"dense_score"`
	Source      string      `json:"source,omitempty"`
	Path        string      `json:"path"`
	Tag         LanguageTag `json:"language,omitempty"`
	Locator     *Locator    `json:"locator,omitempty"`
	Text        string      `json:"text,omitempty"`
}
