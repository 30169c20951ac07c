package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/hyunolike/learnathon-1st-team1/internal/engine"
	"github.com/hyunolike/learnathon-1st-team1/internal/language"
	"github.com/hyunolike/learnathon-1st-team1/internal/repo"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// Handler implements the /api/v1 routes
type Handler struct {
	engine       Engine
	logger       *slog.Logger
	defaultTopK  int
	version      string
	allowedRoots []string
}

// NewHandler creates a handler. Local paths are only ingested when they lie
// under one of allowedRoots.
func NewHandler(eng Engine, logger *slog.Logger, defaultTopK int, version string, allowedRoots []string) *Handler {
	return &Handler{
		engine:       eng,
		logger:       logger,
		defaultTopK:  defaultTopK,
		version:      version,
		allowedRoots: allowedRoots,
	}
}

// Register sets up the routes on router
func (h *Handler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Post("/ingest", h.Ingest)
	router.Post("/search", h.Search)
	router.Get("/status", h.Status)
}

// Health reports liveness
func (h *Handler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": h.version,
	})
}

type ingestRequest struct {
	URL       string   `json:"url"`
	Path      string   `json:"path"`
	Languages []string `json:"languages"`
}

// Ingest clones a URL or reads a local path and indexes it
func (h *Handler) Ingest(c fiber.Ctx) error {
	var body ingestRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	url := strings.TrimSpace(body.URL)
	path := strings.TrimSpace(body.Path)
	if (url == "") == (path == "") {
		return badRequest(c, "exactly one of url or path is required")
	}

	tags := make([]types.LanguageTag, 0, len(body.Languages))
	for _, name := range body.Languages {
		tag, ok := language.ParseTag(name)
		if !ok {
			return badRequest(c, fmt.Sprintf("unknown language %q", name))
		}
		tags = append(tags, tag)
	}
	opts := &engine.IngestOptions{Languages: tags}

	var (
		report *types.IngestionReport
		err    error
	)
	if url != "" {
		if err := repo.ValidateRemoteURL(url); err != nil {
			return badRequest(c, err.Error())
		}
		report, err = h.engine.IngestURL(c.Context(), url, opts)
	} else {
		resolved, ok := resolveAllowed(path, h.allowedRoots)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "path is outside the allowed roots"})
		}
		report, err = h.engine.IngestRepository(c.Context(), resolved, opts)
	}

	var fetchErr *repo.FetchError
	switch {
	case err == nil:
		return c.JSON(report)
	case errors.Is(err, engine.ErrIngestInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &fetchErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, types.ErrInvalidInput):
		return badRequest(c, err.Error())
	default:
		h.logger.Error("ingestion failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

type searchRequest struct {
	Query        string   `json:"query"`
	TopK         *int     `json:"top_k"`
	SparseWeight *float64 `json:"sparse_weight"`
	DenseWeight  *float64 `json:"dense_weight"`
}

// Search runs a hybrid query
func (h *Handler) Search(c fiber.Ctx) error {
	var body searchRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(body.Query) == "" {
		return badRequest(c, "query is required")
	}

	topK := h.defaultTopK
	if body.TopK != nil {
		topK = *body.TopK
	}
	if topK <= 0 {
		return badRequest(c, "top_k must be positive")
	}

	var weights *types.FusionWeights
	if body.SparseWeight != nil || body.DenseWeight != nil {
		w := h.engine.Weights()
		if body.SparseWeight != nil {
			w.Sparse = *body.SparseWeight
		}
		if body.DenseWeight != nil {
			w.Dense = *body.DenseWeight
		}
		weights = &w
	}

	resp, err := h.engine.SearchWithWeights(c.Context(), body.Query, topK, weights)
	switch {
	case err == nil:
		return c.JSON(resp)
	case errors.Is(err, types.ErrInvalidInput):
		return badRequest(c, err.Error())
	case errors.Is(err, types.ErrIndexUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		h.logger.Error("search failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// Status reports corpus and index statistics
func (h *Handler) Status(c fiber.Ctx) error {
	return c.JSON(h.engine.Status(c.Context()))
}

// resolveAllowed returns the absolute, symlink-free form of path when it lies
// inside one of roots
func resolveAllowed(path string, roots []string) (string, bool) {
	if len(roots) == 0 {
		return "", false
	}
	target, err := realPath(path)
	if err != nil {
		return "", false
	}
	for _, root := range roots {
		base, err := realPath(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(base, target)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return target, true
		}
	}
	return "", false
}

// realPath makes path absolute and resolves symlinks when it exists
func realPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
