package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hyunolike/learnathon-1st-team1/internal/engine"
	"github.com/hyunolike/learnathon-1st-team1/internal/searcher"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "coderag"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Engine is the part of engine.Engine the tools call
type Engine interface {
	IngestRepository(ctx context.Context, rootPath string, opts *engine.IngestOptions) (*types.IngestionReport, error)
	IngestURL(ctx context.Context, url string, opts *engine.IngestOptions) (*types.IngestionReport, error)
	SearchWithWeights(ctx context.Context, query string, topK int, w *types.FusionWeights) (*searcher.Response, error)
	Status(ctx context.Context) engine.Status
	Weights() types.FusionWeights
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp         *server.MCPServer
	engine      Engine
	logger      *slog.Logger
	defaultTopK int
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultTopK sets top_k for search_code calls that omit it
func WithDefaultTopK(k int) Option {
	return func(s *Server) {
		if k > 0 {
			s.defaultTopK = k
		}
	}
}

// NewServer creates a new MCP server instance
func NewServer(eng Engine, opts ...Option) *Server {
	s := &Server{
		mcp:         server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		engine:      eng,
		logger:      slog.Default(),
		defaultTopK: types.DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// Serve runs the protocol on stdin/stdout until ctx is cancelled or the
// client disconnects
func (s *Server) Serve(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO runs the protocol over the given streams
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestRepositoryTool(), s.handleIngestRepository)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
