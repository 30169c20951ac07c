package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name
	ErrUnknownBackend = errors.New("unknown vector backend")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store is closed")
)

// Backend names accepted by Open
const (
	BackendSQLite   = "sqlite"
	BackendChroma   = "chroma"
	BackendPgVector = "pgvector"
)

// DefaultCollection names the Chroma collection and the pgvector table
const DefaultCollection = "code_documents"

// Store persists chunk vectors and answers nearest-neighbour queries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Upsert inserts or overwrites records by ID
	Upsert(ctx context.Context, records []Record) error
	// Replace swaps every record of source for records
	Replace(ctx context.Context, source string, records []Record) error
	// Query returns up to k records ranked by cosine similarity to vector
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)
	Close() error
}

// Record is one embedded chunk as the vector store sees it
type Record struct {
	ID       string
	Source   string
	Path     string
	Tag      types.LanguageTag
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// Hit is a stored record with its similarity to the query vector.
// Record.Vector is not populated.
type Hit struct {
	Record
	Score float64 // Cosine similarity, higher is closer
}

// RecordFromChunk builds a Record for c with the given embedding
func RecordFromChunk(c types.Chunk, vector []float32) Record {
	return Record{
		ID:     c.ID,
		Source: c.Source,
		Path:   c.Path,
		Tag:    c.Tag,
		Text:   c.Text,
		Vector: vector,
		Metadata: map[string]string{
			"start_line": fmt.Sprint(c.StartLine),
			"end_line":   fmt.Sprint(c.EndLine),
		},
	}
}

// validateRecords checks that every record has an id and a vector, and that
// all vectors share one dimension
func validateRecords(records []Record) error {
	dim := 0
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record %d has no id", types.ErrInvalidInput, i)
		}
		if len(r.Vector) == 0 {
			return fmt.Errorf("%w: record %s has no vector", types.ErrInvalidInput, r.ID)
		}
		if dim == 0 {
			dim = len(r.Vector)
		} else if len(r.Vector) != dim {
			return fmt.Errorf("%w: record %s has dimension %d, expected %d",
				types.ErrInvalidInput, r.ID, len(r.Vector), dim)
		}
	}
	return nil
}

func validateQuery(vector []float32, k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", types.ErrInvalidInput, k)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty query vector", types.ErrInvalidInput)
	}
	return nil
}

// Config selects and configures a backend
type Config struct {
	Backend     string
	SQLitePath  string
	ChromaURL   string
	Collection  string
	DatabaseURL string
	// Embed is handed to Chroma as the collection's embedding function
	Embed EmbedFunc
}

// Open creates the store named by cfg.Backend
func Open(ctx context.Context, cfg Config) (Store, error) {
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendSQLite, "":
		return NewSQLiteStore(cfg.SQLitePath)
	case BackendChroma:
		return NewChromaStore(ctx, ChromaConfig{
			BaseURL:    cfg.ChromaURL,
			Collection: collection,
			Embed:      cfg.Embed,
		})
	case BackendPgVector:
		return NewPgVectorStore(ctx, cfg.DatabaseURL, collection)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
