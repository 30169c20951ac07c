package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultBase is where clones are placed when no base is configured
const DefaultBase = "/tmp/repo_data"

// ErrInvalidURL is returned for URLs git should not be asked to clone
var ErrInvalidURL = errors.New("invalid repository url")

// FetchError reports a repository that could not be fetched
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// scpLike matches git@host:owner/repo style addresses
var scpLike = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^/].*$`)

var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ssh":   true,
	"git":   true,
	"file":  true,
}

// ValidateURL accepts http, https, ssh, git and file URLs plus scp-like
// addresses. Anything starting with '-' is rejected so it cannot be read
// as a git flag.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if strings.HasPrefix(raw, "-") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if scpLike.MatchString(raw) && !strings.Contains(raw, "://") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !allowedSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Scheme != "file" && u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if u.Scheme == "file" && u.Path == "" {
		return fmt.Errorf("%w: missing path", ErrInvalidURL)
	}
	return nil
}

// ValidateRemoteURL is ValidateURL without the file scheme, for callers that
// must not reach the local filesystem through a clone
func ValidateRemoteURL(raw string) error {
	if err := ValidateURL(raw); err != nil {
		return err
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err == nil && strings.EqualFold(u.Scheme, "file") {
		return fmt.Errorf("%w: local file URLs are not accepted", ErrInvalidURL)
	}
	return nil
}

// runFunc executes git with args
type runFunc func(ctx context.Context, args ...string) error

// GitSource clones repositories into unique directories under a base path
type GitSource struct {
	base   string
	logger *slog.Logger
	run    runFunc
}

// Option configures a GitSource
type Option func(*GitSource)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(g *GitSource) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGitSource creates a GitSource rooted at base (DefaultBase if empty)
func NewGitSource(base string, opts ...Option) *GitSource {
	if base == "" {
		base = DefaultBase
	}
	g := &GitSource{
		base:   filepath.Clean(base),
		logger: slog.Default(),
		run:    runGit,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Base returns the directory clones are placed in
func (g *GitSource) Base() string {
	return g.base
}

// Fetch shallow-clones rawURL into <base>/<uuid> and returns that path.
// On failure nothing is left behind.
func (g *GitSource) Fetch(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := ValidateURL(rawURL); err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	if err := os.MkdirAll(g.base, 0o755); err != nil {
		return "", &FetchError{URL: rawURL, Err: fmt.Errorf("failed to create clone base: %w", err)}
	}

	dest := filepath.Join(g.base, uuid.NewString())
	g.logger.Info("cloning repository", "url", rawURL, "dest", dest)

	if err := g.run(ctx, "clone", "--depth", "1", "--", rawURL, dest); err != nil {
		g.Cleanup(dest)
		return "", &FetchError{URL: rawURL, Err: err}
	}
	return dest, nil
}

// Cleanup removes a clone made by Fetch. It is best-effort: failures are
// logged, and paths outside the base are refused.
func (g *GitSource) Cleanup(path string) {
	clean := filepath.Clean(path)
	rel, err := filepath.Rel(g.base, clean)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		g.logger.Warn("refusing to remove path outside clone base", "path", path, "base", g.base)
		return
	}

	// .git holds read-only pack files; drop it first
	if err := os.RemoveAll(filepath.Join(clean, ".git")); err != nil {
		g.logger.Warn("failed to remove git metadata", "path", clean, "error", err)
	}
	if err := os.RemoveAll(clean); err != nil {
		g.logger.Warn("failed to remove clone", "path", clean, "error", err)
		return
	}
	g.logger.Debug("removed clone", "path", clean)
}

func runGit(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return nil
}
