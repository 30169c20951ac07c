package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyunolike/learnathon-1st-team1/internal/engine"
	"github.com/hyunolike/learnathon-1st-team1/internal/language"
	"github.com/hyunolike/learnathon-1st-team1/internal/repo"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeFetchFailed        = -32001 // Repository could not be cloned
	ErrorCodeIndexingInProgress = -32002 // Another ingestion is already running
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleIngestRepository handles the ingest_repository tool invocation
func (s *Server) handleIngestRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	url := strings.TrimSpace(getStringDefault(args, "url", ""))
	path := strings.TrimSpace(getStringDefault(args, "path", ""))
	if (url == "") == (path == "") {
		return nil, newMCPError(ErrorCodeInvalidParams, "exactly one of url or path is required", map[string]interface{}{
			"param":  "url|path",
			"reason": "provide one, not both",
		})
	}

	tags, err := parseLanguages(args)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid languages", map[string]interface{}{
			"param":  "languages",
			"reason": err.Error(),
		})
	}
	opts := &engine.IngestOptions{Languages: tags}

	var report *types.IngestionReport
	if url != "" {
		if err := repo.ValidateURL(url); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid url", map[string]interface{}{
				"param":  "url",
				"reason": err.Error(),
			})
		}
		report, err = s.engine.IngestURL(ctx, url, opts)
	} else {
		if err := validatePath(path); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
				"param":  "path",
				"reason": err.Error(),
			})
		}
		report, err = s.engine.IngestRepository(ctx, path, opts)
	}
	if err != nil {
		return nil, s.ingestError(err)
	}

	return mcp.NewToolResultText(formatJSON(report)), nil
}

func (s *Server) ingestError(err error) error {
	var fetchErr *repo.FetchError
	switch {
	case errors.Is(err, engine.ErrIngestInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "another ingestion is already running", nil)
	case errors.As(err, &fetchErr):
		return newMCPError(ErrorCodeFetchFailed, "repository could not be fetched", map[string]interface{}{
			"url":   fetchErr.URL,
			"error": fetchErr.Err.Error(),
		})
	case errors.Is(err, types.ErrInvalidInput):
		return newMCPError(ErrorCodeInvalidParams, "invalid repository root", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		s.logger.Error("ingestion failed", "error", err)
		return newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK, ok := getIntDefault(args, "top_k", s.defaultTopK)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be an integer", map[string]interface{}{
			"param": "top_k",
			"value": args["top_k"],
		})
	}
	if topK < 1 || topK > maxTopK {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("top_k must be between 1 and %d", maxTopK), map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	var weights *types.FusionWeights
	sparseW, hasSparse := getFloat(args, "sparse_weight")
	denseW, hasDense := getFloat(args, "dense_weight")
	if hasSparse || hasDense {
		w := s.engine.Weights()
		if hasSparse {
			w.Sparse = sparseW
		}
		if hasDense {
			w.Dense = denseW
		}
		if err := w.Validate(); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "weights must be between 0 and 1", map[string]interface{}{
				"param":  "sparse_weight|dense_weight",
				"reason": err.Error(),
			})
		}
		weights = &w
	}

	resp, err := s.engine.SearchWithWeights(ctx, query, topK, weights)
	if err != nil {
		if errors.Is(err, types.ErrInvalidInput) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid search request", map[string]interface{}{
				"error": err.Error(),
			})
		}
		s.logger.Error("search failed", "query", query, "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"query":             query,
		"results":           resp.Results,
		"total_results":     len(resp.Results),
		"sparse_candidates": resp.SparseCandidates,
		"dense_candidates":  resp.DenseCandidates,
		"degraded":          resp.Degraded,
		"cache_hit":         resp.CacheHit,
		"duration_ms":       resp.Duration.Milliseconds(),
	}
	if len(resp.Warnings) > 0 {
		response["warnings"] = resp.Warnings
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.engine.Status(ctx))), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// parseLanguages reads the optional languages array
func parseLanguages(args map[string]interface{}) ([]types.LanguageTag, error) {
	raw, ok := args["languages"]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errors.New("languages must be an array of strings")
	}
	tags := make([]types.LanguageTag, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, errors.New("languages must be an array of strings")
		}
		tag, ok := language.ParseTag(name)
		if !ok {
			return nil, fmt.Errorf("unknown language %q", name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value.
// ok is false when the value is present but not a whole number.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) (int, bool) {
	switch val := args[key].(type) {
	case nil:
		return defaultValue, true
	case int:
		return val, true
	case float64:
		if val != math.Trunc(val) || math.Abs(val) > math.MaxInt32 {
			return 0, false
		}
		return int(val), true
	}
	return 0, false
}

// getFloat extracts an optional number parameter
func getFloat(args map[string]interface{}, key string) (float64, bool) {
	switch val := args[key].(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	}
	return 0, false
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
