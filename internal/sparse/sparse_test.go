package sparse

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

func chunk(id, text string) types.Chunk {
	return types.Chunk{ID: id, Text: text}
}

func ids(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"plain words", "Hello, World!", []string{"hello", "world"}},
		{"camel case", "parseHTTPHeader", []string{"parsehttpheader", "parse", "http", "header"}},
		{"snake case", "max_chunk_size", []string{"max_chunk_size", "max", "chunk", "size"}},
		{"digits", "v2Config sha256", []string{"v2config", "v2", "config", "sha256"}},
		{"leading underscore", "_private", []string{"private"}},
		{"unicode", "함수 호출", []string{"함수", "호출"}},
		{"only punctuation", "{}();", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.input))
		})
	}
}

func TestIndex_Empty(t *testing.T) {
	ix := New()
	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, uint64(0), ix.Generation())

	hits, err := ix.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_InvalidK(t *testing.T) {
	_, err := New().Search(context.Background(), "q", 0)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestIndex_Ranking(t *testing.T) {
	ix := New()
	ix.Rebuild([]types.Chunk{
		chunk("a", "func loadConfig(path string) (*Config, error) { return readConfig(path) }"),
		chunk("b", "func main() { server.Start() }"),
		chunk("c", "// config config config: the configuration loader reads config files"),
		chunk("d", "type Server struct { addr string }"),
	})
	require.Equal(t, 4, ix.Len())

	hits, err := ix.Search(context.Background(), "config", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, []string{"c", "a"}, ids(hits))
	assert.Equal(t, 1.0, hits[0].Score)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Greater(t, hits[1].Score, 0.0)

	hits, err = ix.Search(context.Background(), "server", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "d"}, ids(hits))
}

func TestIndex_RareTermsWeighMore(t *testing.T) {
	ix := New()
	ix.Rebuild([]types.Chunk{
		chunk("common", "error error"),
		chunk("rare", "error tokenizer"),
		chunk("x1", "error handling"),
		chunk("x2", "error wrap"),
	})

	hits, err := ix.Search(context.Background(), "error tokenizer", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "rare", hits[0].ID)
}

func TestIndex_TiesBrokenByID(t *testing.T) {
	ix := New()
	ix.Rebuild([]types.Chunk{
		chunk("c", "retry backoff"),
		chunk("a", "retry backoff"),
		chunk("b", "retry backoff"),
		chunk("z", "unrelated"),
	})

	hits, err := ix.Search(context.Background(), "backoff", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(hits))
	for _, h := range hits {
		assert.Equal(t, 1.0, h.Score)
	}
}

func TestIndex_TopKAndNoTerms(t *testing.T) {
	ix := New()
	chunks := make([]types.Chunk, 20)
	for i := range chunks {
		chunks[i] = chunk(fmt.Sprintf("c%02d", i), fmt.Sprintf("shared term%d", i))
	}
	ix.Rebuild(chunks)

	hits, err := ix.Search(context.Background(), "shared", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 5)

	hits, err = ix.Search(context.Background(), "  ;; ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = ix.Search(context.Background(), "absent", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_IdentifierParts(t *testing.T) {
	ix := New()
	ix.Rebuild([]types.Chunk{
		chunk("go", "func ParseHTTPHeader(r *Request) {}"),
		chunk("py", "def parse_http_header(request): pass"),
		chunk("other", "def render(template): pass"),
	})

	hits, err := ix.Search(context.Background(), "http header", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"go", "py"}, ids(hits))
}

func TestIndex_DuplicateIDs(t *testing.T) {
	ix := New()
	ix.Rebuild([]types.Chunk{chunk("a", "first"), chunk("a", "second")})
	assert.Equal(t, 1, ix.Len())

	hits, err := ix.Search(context.Background(), "second", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_SnapshotIsolation(t *testing.T) {
	ix := New()
	old := ix.Rebuild([]types.Chunk{chunk("old", "alpha")})
	assert.Equal(t, uint64(1), old.Generation())

	ix.Rebuild([]types.Chunk{chunk("new", "beta")})
	assert.Equal(t, uint64(2), ix.Generation())

	// a reader that captured the old snapshot still sees the old corpus
	hits, err := ix.search(context.Background(), old, "alpha", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids(hits))

	hits, err = ix.Search(context.Background(), "alpha", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_Cancelled(t *testing.T) {
	ix := New()
	ix.Rebuild([]types.Chunk{chunk("a", "alpha")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ix.Search(ctx, "alpha", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_ConcurrentRebuildAndSearch(t *testing.T) {
	ix := New()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			ix.Rebuild([]types.Chunk{
				chunk("a", "alpha beta"),
				chunk(fmt.Sprintf("gen%d", i), "alpha"),
			})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				hits, err := ix.Search(context.Background(), "alpha", 5)
				if !assert.NoError(t, err) {
					return
				}
				// every snapshot is whole: either empty or both chunks
				if len(hits) != 0 {
					assert.Len(t, hits, 2)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(50), ix.Generation())
}

func TestWithParams(t *testing.T) {
	ix := New(WithParams(1.2, 0))
	ix.Rebuild([]types.Chunk{
		chunk("short", "needle"),
		chunk("long", "needle hay hay hay hay hay hay hay hay"),
	})

	// with b = 0 length is ignored and both score equally
	hits, err := ix.Search(context.Background(), "needle", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, hits[0].Raw, hits[1].Raw)
	assert.Equal(t, "long", hits[0].ID)
}
