package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunolike/learnathon-1st-team1/internal/config"
	"github.com/hyunolike/learnathon-1st-team1/internal/engine"
	"github.com/hyunolike/learnathon-1st-team1/internal/searcher"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// writeConfig points the data directory at a temp dir and uses the local embedder
func writeConfig(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvDataDir, "")
	t.Setenv(config.EnvEmbeddingProvider, "")
	t.Setenv(config.EnvVectorBackend, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "coderag.yaml")
	content := fmt.Sprintf(`data_dir: %s
log:
  level: error
embedding:
  provider: local
ingest:
  clone_base: %s
`, filepath.Join(dir, "data"), filepath.Join(dir, "clones"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(BuildInfo{Version: "1.2.3", BuildTime: "today"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "coderag version 1.2.3")
	assert.Contains(t, out, "Build Time: today")
	assert.Contains(t, out, "SQLite Driver:")
}

func TestCommandsRegistered(t *testing.T) {
	cmd := NewRootCommand(BuildInfo{})
	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "http", "ingest", "search", "status", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestArgsValidation(t *testing.T) {
	_, err := run(t, "search")
	assert.Error(t, err)

	_, err = run(t, "ingest")
	assert.Error(t, err)

	_, err = run(t, "status", "extra")
	assert.Error(t, err)
}

func TestIngest_UnknownLanguage(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "--config", cfg, "ingest", t.TempDir(), "--languages", "klingon")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestIngest_NeitherDirNorURL(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "--config", cfg, "ingest", "not-a-dir-or-url")
	assert.Error(t, err)
}

func TestIngestSearchStatus(t *testing.T) {
	cfg := writeConfig(t)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "parse.go"),
		[]byte("package config\n\n// parseSettings reads the settings file\nfunc parseSettings(path string) error {\n\treturn nil\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"),
		[]byte("# Notes\n\nDeployment happens on Fridays.\n"), 0o644))

	out, err := run(t, "--config", cfg, "ingest", root, "--languages", "go")
	require.NoError(t, err, out)
	var report types.IngestionReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.TotalFiles)
	assert.Equal(t, root, report.Source)

	out, err = run(t, "--config", cfg, "search", "parseSettings", "-k", "3", "--sparse-weight", "1", "--dense-weight", "0")
	require.NoError(t, err, out)
	var resp searcher.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results[0].Path, "parse.go")

	out, err = run(t, "--config", cfg, "status")
	require.NoError(t, err, out)
	var status engine.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, []string{root}, status.Sources)
	assert.True(t, status.DenseAvailable)
}
