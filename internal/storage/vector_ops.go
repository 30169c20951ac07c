package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// queryVectors ranks stored vectors against queryVector
func queryVectors(ctx context.Context, db *sql.DB, queryVector []float32, k int) ([]Hit, error) {
	if VectorExtensionAvailable {
		return queryVectorsOptimized(ctx, db, queryVector, k)
	}
	return queryVectorsFallback(ctx, db, queryVector, k)
}

// queryVectorsOptimized lets sqlite-vec compute distances and order results
func queryVectorsOptimized(ctx context.Context, db *sql.DB, queryVector []float32, k int) ([]Hit, error) {
	// vec_distance_cosine returns a distance, lower is closer
	query := `
		SELECT id, source, path, tag, content, metadata,
			1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM vectors
		WHERE dimension = ?
		ORDER BY similarity DESC, id ASC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, serializeVector(queryVector), len(queryVector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var h Hit
		var tag string
		var meta sql.NullString
		if err := rows.Scan(&h.ID, &h.Source, &h.Path, &tag, &h.Text, &meta, &h.Score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		h.Tag = types.LanguageTag(tag)
		if h.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// queryVectorsFallback scans every vector of matching dimension and ranks
// them in Go
func queryVectorsFallback(ctx context.Context, db *sql.DB, queryVector []float32, k int) ([]Hit, error) {
	query := `
		SELECT id, source, path, tag, content, metadata, vector
		FROM vectors
		WHERE dimension = ?
	`
	rows, err := db.QueryContext(ctx, query, len(queryVector))
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits, err := computeSimilarityScores(rows, queryVector)
	if err != nil {
		return nil, err
	}

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// computeSimilarityScores scores each row against the query vector
func computeSimilarityScores(rows *sql.Rows, queryVector []float32) ([]Hit, error) {
	hits := make([]Hit, 0, 256)

	for rows.Next() {
		var h Hit
		var tag string
		var meta sql.NullString
		var blob []byte
		if err := rows.Scan(&h.ID, &h.Source, &h.Path, &tag, &h.Text, &meta, &blob); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue
		}
		h.Tag = types.LanguageTag(tag)
		h.Score = cosineSimilarity(queryVector, vector)

		var err error
		if h.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}

	return hits, rows.Err()
}

// sortHits orders by similarity descending, then id ascending
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

func encodeMetadata(meta map[string]string) (sql.NullString, error) {
	if len(meta) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeMetadata(s sql.NullString) (map[string]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(s.String), &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return meta, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
