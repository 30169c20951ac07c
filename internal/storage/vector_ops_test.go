package storage

import (
	"database/sql"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeVector_RoundTrip(t *testing.T) {
	v := []float32{0, 1, -1, 0.5, math.MaxFloat32, math.SmallestNonzeroFloat32}
	blob := serializeVector(v)

	assert.Len(t, blob, len(v)*4)
	assert.Equal(t, v, deserializeVector(blob))

	// little-endian layout of 1.0 (0x3f800000)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, blob[4:8])
}

func TestDeserializeVector_TruncatedBlob(t *testing.T) {
	assert.Len(t, deserializeVector([]byte{1, 2, 3, 4, 5}), 1)
	assert.Empty(t, deserializeVector(nil))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"45 degrees", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestSortHits(t *testing.T) {
	hits := []Hit{
		{Record: Record{ID: "c"}, Score: 0.5},
		{Record: Record{ID: "b"}, Score: 0.9},
		{Record: Record{ID: "a"}, Score: 0.5},
	}
	sortHits(hits)

	assert.Equal(t, "b", hits[0].ID)
	assert.Equal(t, "a", hits[1].ID)
	assert.Equal(t, "c", hits[2].ID)
}

func TestMetadataEncoding(t *testing.T) {
	ns, err := encodeMetadata(nil)
	require.NoError(t, err)
	assert.False(t, ns.Valid)

	ns, err = encodeMetadata(map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.True(t, ns.Valid)

	meta, err := decodeMetadata(ns)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v"}, meta)

	_, err = decodeMetadata(sql.NullString{String: "{", Valid: true})
	assert.Error(t, err)
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[]", vectorLiteral(nil))
	assert.Equal(t, "[1,-0.5,0.25]", vectorLiteral([]float32{1, -0.5, 0.25}))
}

func TestDistanceToSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, distanceToSimilarity(0), 1e-9)
	assert.InDelta(t, 0.0, distanceToSimilarity(2), 1e-9)
	assert.InDelta(t, -1.0, distanceToSimilarity(4), 1e-9)
	assert.InDelta(t, -1.0, distanceToSimilarity(9), 1e-9)
}
