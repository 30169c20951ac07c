// Package httpapi serves ingestion and search over HTTP.
//
// Routes, all under /api/v1:
//
//	GET  /health
//	POST /ingest  {"url": "...", "path": "...", "languages": ["GO"]}
//	POST /search  {"query": "...", "top_k": 5, "sparse_weight": 0.5, "dense_weight": 0.5}
//	GET  /status
//
// The API has no authentication. Clone URLs must be remote, and local paths
// are accepted only under the roots given with WithAllowedRoots.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/hyunolike/learnathon-1st-team1/internal/engine"
	"github.com/hyunolike/learnathon-1st-team1/internal/searcher"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// Engine is the part of engine.Engine the handlers call
type Engine interface {
	IngestRepository(ctx context.Context, rootPath string, opts *engine.IngestOptions) (*types.IngestionReport, error)
	IngestURL(ctx context.Context, url string, opts *engine.IngestOptions) (*types.IngestionReport, error)
	SearchWithWeights(ctx context.Context, query string, topK int, w *types.FusionWeights) (*searcher.Response, error)
	Status(ctx context.Context) engine.Status
	Weights() types.FusionWeights
}

// Server is the HTTP surface of the engine
type Server struct {
	app     *fiber.App
	handler *Handler
	logger  *slog.Logger
}

// Option configures a Server
type Option func(*options)

type options struct {
	logger       *slog.Logger
	accessLog    io.Writer
	defaultTopK  int
	version      string
	allowedRoots []string
}

// WithLogger sets the application logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAccessLog sets where request lines are written; nil disables them
func WithAccessLog(w io.Writer) Option {
	return func(o *options) { o.accessLog = w }
}

// WithDefaultTopK sets top_k for searches that omit it
func WithDefaultTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.defaultTopK = k
		}
	}
}

// WithVersion sets the version reported by /health
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithAllowedRoots sets the directories local paths may be ingested from.
// Without any, POST /ingest only accepts remote URLs.
func WithAllowedRoots(roots ...string) Option {
	return func(o *options) { o.allowedRoots = append([]string(nil), roots...) }
}

// NewServer builds the fiber app and registers every route
func NewServer(eng Engine, opts ...Option) *Server {
	o := &options{
		logger:      slog.Default(),
		accessLog:   os.Stderr,
		defaultTopK: types.DefaultTopK,
		version:     "dev",
	}
	for _, opt := range opts {
		opt(o)
	}

	app := fiber.New(fiber.Config{
		AppName:     "coderag",
		ReadTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	if o.accessLog != nil {
		app.Use(fiberlogger.New(fiberlogger.Config{Stream: o.accessLog}))
	}

	h := NewHandler(eng, o.logger, o.defaultTopK, o.version, o.allowedRoots)
	h.Register(app.Group("/api/v1"))

	return &Server{app: app, handler: h, logger: o.logger}
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", addr)
		errCh <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}
