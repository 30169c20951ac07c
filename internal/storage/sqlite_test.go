package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func rec(id, source string, vector ...float32) Record {
	return Record{
		ID:       id,
		Source:   source,
		Path:     id + ".go",
		Tag:      types.TagGo,
		Text:     "text of " + id,
		Vector:   vector,
		Metadata: map[string]string{"start_line": "1"},
	}
}

func TestNewSQLiteStore(t *testing.T) {
	store := setupTestStore(t)
	assert.NotNil(t, store.db)

	v, err := SchemaVersion(context.Background(), store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

func TestNewSQLiteStore_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []Record{rec("a", "src", 1, 0)}))
	require.NoError(t, store.Close())

	// reopening applies no migration twice and keeps the data
	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_UpsertAndQuery(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		rec("east", "src", 1, 0),
		rec("north", "src", 0, 1),
		rec("northeast", "src", 1, 1),
	}))

	hits, err := store.Query(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "east", hits[0].ID)
	assert.Equal(t, "northeast", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	h := hits[0]
	assert.Equal(t, "src", h.Source)
	assert.Equal(t, "east.go", h.Path)
	assert.Equal(t, types.TagGo, h.Tag)
	assert.Equal(t, "text of east", h.Text)
	assert.Equal(t, map[string]string{"start_line": "1"}, h.Metadata)
	assert.Nil(t, h.Vector)
}

func TestSQLiteStore_UpsertOverwrites(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{rec("a", "src", 1, 0)}))
	updated := rec("a", "src", 0, 1)
	updated.Text = "new text"
	require.NoError(t, store.Upsert(ctx, []Record{updated}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := store.Query(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new text", hits[0].Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestSQLiteStore_Replace(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		rec("a1", "repo-a", 1, 0),
		rec("a2", "repo-a", 1, 1),
		rec("b1", "repo-b", 0, 1),
	}))

	require.NoError(t, store.Replace(ctx, "repo-a", []Record{rec("a3", "repo-a", 0.5, 0.5)}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"repo-a", "repo-b"}, sources)

	hits, err := store.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	ids := []string{}
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	assert.ElementsMatch(t, []string{"a3", "b1"}, ids)

	// replacing with nothing empties the source
	require.NoError(t, store.Replace(ctx, "repo-a", nil))
	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_ReplaceRollsBackOnInvalidRecord(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{rec("a1", "repo-a", 1, 0)}))

	err := store.Replace(ctx, "repo-a", []Record{rec("a2", "repo-a", 1, 0), rec("", "repo-a", 1, 0)})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed replace must keep the old records")
}

func TestSQLiteStore_QueryTiesAndDimensions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{rec("b", "s", 1, 0), rec("a", "s", 2, 0)}))
	require.NoError(t, store.Upsert(ctx, []Record{rec("c", "s", 1, 0, 0)}))

	hits, err := store.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2, "3-dimensional vector is ignored")
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
}

func TestSQLiteStore_Validation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		records []Record
	}{
		{"missing id", []Record{rec("", "s", 1)}},
		{"missing vector", []Record{rec("a", "s")}},
		{"mixed dimensions", []Record{rec("a", "s", 1, 0), rec("b", "s", 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.Upsert(ctx, tt.records), types.ErrInvalidInput)
		})
	}

	_, err := store.Query(ctx, []float32{1}, 0)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = store.Query(ctx, nil, 3)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	assert.NoError(t, store.Upsert(ctx, nil))
}

func TestSQLiteStore_Closed(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.NoError(t, store.Close())

	ctx := context.Background()
	_, err = store.Count(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.Query(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Upsert(ctx, []Record{rec("a", "s", 1)}), ErrClosed)
}

func TestSQLiteStore_ConcurrentReplaceAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	batch := func(prefix string) []Record {
		out := make([]Record, 10)
		for i := range out {
			out[i] = rec(prefix+string(rune('a'+i)), "repo", 1, float32(i))
		}
		return out
	}
	require.NoError(t, store.Replace(ctx, "repo", batch("old-")))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			prefix := "old-"
			if i%2 == 0 {
				prefix = "new-"
			}
			assert.NoError(t, store.Replace(ctx, "repo", batch(prefix)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			hits, err := store.Query(ctx, []float32{1, 0}, 100)
			if !assert.NoError(t, err) {
				return
			}
			assert.Len(t, hits, 10, "queries never observe a half-replaced source")
		}
	}()
	wg.Wait()
}

func TestMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// applying again is a no-op
	require.NoError(t, ApplyMigrations(ctx, store.db))

	var applied int
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&applied))
	assert.Equal(t, len(AllMigrations), applied)

	require.NoError(t, RollbackMigration(ctx, store.db))
	v, err := SchemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.True(t, v.Equal(semver.MustParse("1.0.0")))

	require.NoError(t, ApplyMigrations(ctx, store.db))
	v, err = SchemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Backend: "SQLite", SQLitePath: filepath.Join(t.TempDir(), "v.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Backend: "faiss"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(ctx, Config{Backend: BackendPgVector})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = Open(ctx, Config{Backend: BackendChroma})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestRecordFromChunk(t *testing.T) {
	c := types.Chunk{
		ID: "id1", Source: "repo", Path: "a/b.py", Tag: types.TagPython,
		Text: "def f(): pass", StartLine: 3, EndLine: 9,
	}
	r := RecordFromChunk(c, []float32{0.5})

	assert.Equal(t, "id1", r.ID)
	assert.Equal(t, "repo", r.Source)
	assert.Equal(t, "a/b.py", r.Path)
	assert.Equal(t, types.TagPython, r.Tag)
	assert.Equal(t, map[string]string{"start_line": "3", "end_line": "9"}, r.Metadata)
}
