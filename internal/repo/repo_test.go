package repo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRemoteURL(t *testing.T) {
	assert.NoError(t, ValidateRemoteURL("https://github.com/acme/widgets.git"))
	assert.NoError(t, ValidateRemoteURL("git@github.com:acme/widgets.git"))
	assert.ErrorIs(t, ValidateRemoteURL("file:///etc"), ErrInvalidURL)
	assert.ErrorIs(t, ValidateRemoteURL("FILE:///home/user/repo"), ErrInvalidURL)
	assert.ErrorIs(t, ValidateRemoteURL("ftp://example.com/repo"), ErrInvalidURL)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://github.com/acme/widgets.git", true},
		{"http://git.example.com/repo", true},
		{"ssh://git@github.com/acme/widgets.git", true},
		{"git://example.com/repo.git", true},
		{"file:///srv/git/repo.git", true},
		{"git@github.com:acme/widgets.git", true},
		{"", false},
		{"   ", false},
		{"--upload-pack=touch /tmp/x", false},
		{"ftp://example.com/repo", false},
		{"https://", false},
		{"file://", false},
		{"just-a-word", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidURL)
			}
		})
	}
}

func TestFetch_UsesUniqueDirectory(t *testing.T) {
	base := t.TempDir()
	g := NewGitSource(base)

	var calls [][]string
	g.run = func(_ context.Context, args ...string) error {
		calls = append(calls, args)
		dest := args[len(args)-1]
		require.NoError(t, os.MkdirAll(filepath.Join(dest, ".git"), 0o755))
		return os.WriteFile(filepath.Join(dest, "main.go"), []byte("package main"), 0o644)
	}

	first, err := g.Fetch(context.Background(), "https://github.com/acme/widgets.git")
	require.NoError(t, err)
	second, err := g.Fetch(context.Background(), "https://github.com/acme/widgets.git")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, base, filepath.Dir(first))
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"clone", "--depth", "1", "--", "https://github.com/acme/widgets.git", first}, calls[0])

	g.Cleanup(first)
	_, err = os.Stat(first)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(second)
	assert.NoError(t, err)
}

func TestFetch_Failure(t *testing.T) {
	base := t.TempDir()
	g := NewGitSource(base)
	g.run = func(_ context.Context, args ...string) error {
		dest := args[len(args)-1]
		_ = os.MkdirAll(dest, 0o755) // partial clone
		return errors.New("repository not found")
	}

	_, err := g.Fetch(context.Background(), "https://github.com/acme/missing.git")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "https://github.com/acme/missing.git", fe.URL)
	assert.Contains(t, err.Error(), "repository not found")

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed clone must be removed")
}

func TestFetch_InvalidURL(t *testing.T) {
	g := NewGitSource(t.TempDir())
	g.run = func(context.Context, ...string) error {
		t.Fatal("git must not run for an invalid url")
		return nil
	}

	_, err := g.Fetch(context.Background(), "-oProxyCommand=evil")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestCleanup_RefusesOutsideBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "clones")
	outside := t.TempDir()
	keep := filepath.Join(outside, "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))

	g := NewGitSource(base)
	g.Cleanup(outside)
	g.Cleanup(base)
	g.Cleanup(filepath.Join(base, "..", filepath.Base(outside)))

	_, err := os.Stat(keep)
	assert.NoError(t, err)
}

func TestCleanup_MissingPathIsQuiet(t *testing.T) {
	base := t.TempDir()
	g := NewGitSource(base)
	g.Cleanup(filepath.Join(base, "never-created"))
}

func TestNewGitSource_DefaultBase(t *testing.T) {
	assert.Equal(t, DefaultBase, NewGitSource("").Base())
}

func TestFetch_LocalRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	origin := t.TempDir()
	gitCmd := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = origin
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	gitCmd("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(origin, "hello.py"), []byte("print('hi')\n"), 0o644))
	gitCmd("add", ".")
	gitCmd("commit", "-q", "-m", "init")

	g := NewGitSource(t.TempDir())
	dir, err := g.Fetch(context.Background(), "file://"+filepath.ToSlash(origin))
	require.NoError(t, err)
	defer g.Cleanup(dir)

	data, err := os.ReadFile(filepath.Join(dir, "hello.py"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "print"))
}
