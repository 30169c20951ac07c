package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hyunolike/learnathon-1st-team1/internal/corpus"
	"github.com/hyunolike/learnathon-1st-team1/internal/engine"
	"github.com/hyunolike/learnathon-1st-team1/internal/logging"
	"github.com/hyunolike/learnathon-1st-team1/internal/repo"
	"github.com/hyunolike/learnathon-1st-team1/internal/searcher"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) IngestRepository(ctx context.Context, rootPath string, opts *engine.IngestOptions) (*types.IngestionReport, error) {
	args := m.Called(rootPath, opts)
	report, _ := args.Get(0).(*types.IngestionReport)
	return report, args.Error(1)
}

func (m *mockEngine) IngestURL(ctx context.Context, url string, opts *engine.IngestOptions) (*types.IngestionReport, error) {
	args := m.Called(url, opts)
	report, _ := args.Get(0).(*types.IngestionReport)
	return report, args.Error(1)
}

func (m *mockEngine) SearchWithWeights(ctx context.Context, query string, topK int, w *types.FusionWeights) (*searcher.Response, error) {
	args := m.Called(query, topK, w)
	resp, _ := args.Get(0).(*searcher.Response)
	return resp, args.Error(1)
}

func (m *mockEngine) Status(ctx context.Context) engine.Status {
	return m.Called().Get(0).(engine.Status)
}

func (m *mockEngine) Weights() types.FusionWeights {
	return types.DefaultWeights()
}

func newTestServer(eng Engine, opts ...Option) *Server {
	opts = append([]Option{WithLogger(logging.Discard()), WithAccessLog(nil), WithVersion("test")}, opts...)
	return NewServer(eng, opts...)
}

func do(t *testing.T, s *Server, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(&mockEngine{})

	code, body := do(t, s, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestSearch_Validation(t *testing.T) {
	eng := &mockEngine{}
	s := newTestServer(eng)

	tests := []struct {
		name string
		body interface{}
	}{
		{"empty query", map[string]interface{}{"query": " "}},
		{"zero top_k", map[string]interface{}{"query": "q", "top_k": 0}},
		{"negative top_k", map[string]interface{}{"query": "q", "top_k": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, s, http.MethodPost, "/api/v1/search", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, body["error"])
		})
	}
	eng.AssertNotCalled(t, "SearchWithWeights", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_ErrorMapping(t *testing.T) {
	eng := &mockEngine{}
	s := newTestServer(eng)

	eng.On("SearchWithWeights", "down", 5, (*types.FusionWeights)(nil)).Return(nil, types.ErrIndexUnavailable)
	eng.On("SearchWithWeights", "weights", 5, &types.FusionWeights{Sparse: 2, Dense: 0.5}).
		Return(nil, errors.Join(types.ErrInvalidInput, errors.New("sparse weight outside [0,1]")))

	code, _ := do(t, s, http.MethodPost, "/api/v1/search", map[string]interface{}{"query": "down"})
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = do(t, s, http.MethodPost, "/api/v1/search", map[string]interface{}{"query": "weights", "sparse_weight": 2})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestIngest_Validation(t *testing.T) {
	eng := &mockEngine{}
	s := newTestServer(eng)

	for _, body := range []interface{}{
		map[string]interface{}{},
		map[string]interface{}{"url": "https://example.com/r.git", "path": "/tmp"},
		map[string]interface{}{"url": "ftp://example.com/r"},
		map[string]interface{}{"url": "file:///etc"},
		map[string]interface{}{"url": "file:///home/user/project/.git"},
		map[string]interface{}{"path": "/tmp", "languages": []string{"klingon"}},
	} {
		code, _ := do(t, s, http.MethodPost, "/api/v1/ingest", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
	}
}

func TestIngest_ErrorMapping(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	eng := &mockEngine{}
	s := newTestServer(eng, WithAllowedRoots(root))
	missing := filepath.Join(root, "missing")

	eng.On("IngestURL", "https://example.com/busy.git", mock.Anything).Return(nil, engine.ErrIngestInProgress)
	eng.On("IngestURL", "https://example.com/gone.git", mock.Anything).
		Return(nil, &repo.FetchError{URL: "https://example.com/gone.git", Err: errors.New("not found")})
	eng.On("IngestRepository", missing, mock.Anything).Return(nil, types.ErrInvalidInput)

	code, _ := do(t, s, http.MethodPost, "/api/v1/ingest", map[string]interface{}{"url": "https://example.com/busy.git"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, s, http.MethodPost, "/api/v1/ingest", map[string]interface{}{"url": "https://example.com/gone.git"})
	assert.Equal(t, http.StatusBadGateway, code)

	code, _ = do(t, s, http.MethodPost, "/api/v1/ingest", map[string]interface{}{"path": missing})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestIngest_PathRestrictedToAllowedRoots(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "project"), 0o755))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	eng := &mockEngine{}
	restricted := newTestServer(eng, WithAllowedRoots(root))
	for _, path := range []string{
		outside,
		"/etc",
		filepath.Join(root, "..", filepath.Base(outside)),
		filepath.Join(root, "escape"),
	} {
		code, body := do(t, restricted, http.MethodPost, "/api/v1/ingest", map[string]interface{}{"path": path})
		assert.Equal(t, http.StatusForbidden, code, path)
		assert.NotEmpty(t, body["error"])
	}

	code, _ := do(t, newTestServer(eng), http.MethodPost, "/api/v1/ingest", map[string]interface{}{"path": root})
	assert.Equal(t, http.StatusForbidden, code, "no allowed roots disables path ingestion")

	eng.AssertNotCalled(t, "IngestRepository", mock.Anything, mock.Anything)
}

func TestResolveAllowed(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	got, ok := resolveAllowed(root, []string{root})
	assert.True(t, ok)
	assert.Equal(t, root, got)

	got, ok = resolveAllowed(filepath.Join(root, "a", "..", "b"), []string{"/nonexistent", root})
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "b"), got)

	_, ok = resolveAllowed(root+"-sibling", []string{root})
	assert.False(t, ok)

	_, ok = resolveAllowed(root, nil)
	assert.False(t, ok)
}

func TestEndToEnd(t *testing.T) {
	c, err := corpus.Open("")
	require.NoError(t, err)
	eng := engine.New(c, nil, engine.WithLogger(logging.Discard()))
	defer eng.Close()
	root := t.TempDir()
	s := newTestServer(eng, WithAllowedRoots(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "cache.py"),
		[]byte("class LRUCache:\n    def evict(self):\n        pass\n"), 0o644))

	code, body := do(t, s, http.MethodPost, "/api/v1/ingest", map[string]interface{}{"path": root, "languages": []string{"python"}})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(1), body["total_files"])

	code, body = do(t, s, http.MethodPost, "/api/v1/search", map[string]interface{}{"query": "evict", "top_k": 3})
	require.Equal(t, http.StatusOK, code, body)
	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Contains(t, results[0].(map[string]interface{})["path"], "cache.py")
	assert.Equal(t, true, body["degraded"])

	code, body = do(t, s, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["chunks"])
}
