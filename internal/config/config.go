package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyunolike/learnathon-1st-team1/internal/embedder"
	"github.com/hyunolike/learnathon-1st-team1/internal/language"
	"github.com/hyunolike/learnathon-1st-team1/internal/repo"
	"github.com/hyunolike/learnathon-1st-team1/internal/storage"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// Environment variables that override the file
const (
	EnvConfig               = "CODERAG_CONFIG"
	EnvDataDir              = "CODERAG_DATA_DIR"
	EnvLogLevel             = "CODERAG_LOG_LEVEL"
	EnvLogFormat            = "CODERAG_LOG_FORMAT"
	EnvEmbeddingProvider    = embedder.EnvProvider
	EnvEmbeddingModel       = embedder.EnvModel
	EnvEmbeddingConcurrency = "CODERAG_EMBEDDING_CONCURRENCY"
	EnvEmbeddingRPS         = "CODERAG_EMBEDDING_RPS"
	EnvEmbeddingBatchSize   = "CODERAG_EMBEDDING_BATCH_SIZE"
	EnvVectorBackend        = "CODERAG_VECTOR_BACKEND"
	EnvSQLitePath           = "CODERAG_SQLITE_PATH"
	EnvChromaURL            = "CHROMA_URL"
	EnvCollection           = "CODERAG_COLLECTION"
	EnvDatabaseURL          = "DATABASE_URL"
	EnvTopK                 = "CODERAG_TOP_K"
	EnvSparseWeight         = "CODERAG_SPARSE_WEIGHT"
	EnvDenseWeight          = "CODERAG_DENSE_WEIGHT"
	EnvCloneBase            = "CODERAG_CLONE_BASE"
	EnvHTTPAddr             = "CODERAG_HTTP_ADDR"
	EnvHTTPAllowedRoots     = "CODERAG_HTTP_ALLOWED_ROOTS"
	EnvWorkers              = "CODERAG_WORKERS"
)

// DefaultDataDir holds the corpus and the SQLite vector store
const DefaultDataDir = "~/.coderag"

// DefaultHTTPAddr is the listen address of the HTTP API. The API has no
// authentication, so it only listens on loopback unless configured otherwise.
const DefaultHTTPAddr = "127.0.0.1:8080"

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete runtime configuration
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Log       LogConfig       `yaml:"log"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	HTTP      HTTPConfig      `yaml:"http"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type EmbeddingConfig struct {
	Provider      string  `yaml:"provider"` // empty detects from API keys
	Model         string  `yaml:"model"`
	BaseURL       string  `yaml:"base_url"`
	Concurrency   int     `yaml:"concurrency"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	BatchSize     int     `yaml:"batch_size"`
	CacheSize     int     `yaml:"cache_size"`
}

type VectorConfig struct {
	Backend     string `yaml:"backend"` // sqlite, chroma, pgvector
	SQLitePath  string `yaml:"sqlite_path"`
	ChromaURL   string `yaml:"chroma_url"`
	Collection  string `yaml:"collection"`
	DatabaseURL string `yaml:"database_url"`
}

type SearchConfig struct {
	TopK         int           `yaml:"top_k"`
	SparseWeight float64       `yaml:"sparse_weight"`
	DenseWeight  float64       `yaml:"dense_weight"`
	DenseTimeout time.Duration `yaml:"dense_timeout"`
	CacheSize    int           `yaml:"cache_size"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type IngestConfig struct {
	Workers      int      `yaml:"workers"`
	MaxFileBytes int64    `yaml:"max_file_bytes"`
	CloneBase    string   `yaml:"clone_base"`
	Languages    []string `yaml:"languages"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`

	// AllowedRoots lists the directories local paths may be ingested from
	// over HTTP. Empty disables path ingestion on that surface.
	AllowedRoots []string `yaml:"allowed_roots"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir,
		Log:     LogConfig{Level: "info", Format: "text"},
		Embedding: EmbeddingConfig{
			Concurrency: embedder.DefaultPoolConfig().Concurrency,
			BatchSize:   embedder.DefaultPoolBatchSize,
			CacheSize:   10000,
		},
		Vector: VectorConfig{
			Backend:    storage.BackendSQLite,
			ChromaURL:  storage.DefaultChromaURL,
			Collection: storage.DefaultCollection,
		},
		Search: SearchConfig{
			TopK:         types.DefaultTopK,
			SparseWeight: types.DefaultSparseWeight,
			DenseWeight:  types.DefaultDenseWeight,
			DenseTimeout: 10 * time.Second,
			CacheSize:    1000,
			CacheTTL:     5 * time.Minute,
		},
		Ingest: IngestConfig{
			CloneBase: repo.DefaultBase,
		},
		HTTP: HTTPConfig{Addr: DefaultHTTPAddr},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $CODERAG_CONFIG), then environment variables. A .env file in the working
// directory is loaded first and never overrides variables already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DataDir = envOrDefault(EnvDataDir, c.DataDir)
	c.Log.Level = envOrDefault(EnvLogLevel, c.Log.Level)
	c.Log.Format = envOrDefault(EnvLogFormat, c.Log.Format)

	c.Embedding.Provider = envOrDefault(EnvEmbeddingProvider, c.Embedding.Provider)
	c.Embedding.Model = envOrDefault(EnvEmbeddingModel, c.Embedding.Model)
	c.Embedding.Concurrency = envOrDefaultInt(EnvEmbeddingConcurrency, c.Embedding.Concurrency)
	c.Embedding.RatePerSecond = envOrDefaultFloat(EnvEmbeddingRPS, c.Embedding.RatePerSecond)
	c.Embedding.BatchSize = envOrDefaultInt(EnvEmbeddingBatchSize, c.Embedding.BatchSize)

	c.Vector.Backend = envOrDefault(EnvVectorBackend, c.Vector.Backend)
	c.Vector.SQLitePath = envOrDefault(EnvSQLitePath, c.Vector.SQLitePath)
	c.Vector.ChromaURL = envOrDefault(EnvChromaURL, c.Vector.ChromaURL)
	c.Vector.Collection = envOrDefault(EnvCollection, c.Vector.Collection)
	c.Vector.DatabaseURL = envOrDefault(EnvDatabaseURL, c.Vector.DatabaseURL)

	c.Search.TopK = envOrDefaultInt(EnvTopK, c.Search.TopK)
	c.Search.SparseWeight = envOrDefaultFloat(EnvSparseWeight, c.Search.SparseWeight)
	c.Search.DenseWeight = envOrDefaultFloat(EnvDenseWeight, c.Search.DenseWeight)

	c.Ingest.CloneBase = envOrDefault(EnvCloneBase, c.Ingest.CloneBase)
	c.Ingest.Workers = envOrDefaultInt(EnvWorkers, c.Ingest.Workers)
	c.HTTP.Addr = envOrDefault(EnvHTTPAddr, c.HTTP.Addr)
	if v := os.Getenv(EnvHTTPAllowedRoots); v != "" {
		c.HTTP.AllowedRoots = splitList(v)
	}
}

func (c *Config) expandPaths() error {
	dir, err := expandHome(c.DataDir)
	if err != nil {
		return err
	}
	c.DataDir = dir
	if c.Vector.SQLitePath != "" && c.Vector.SQLitePath != ":memory:" {
		if c.Vector.SQLitePath, err = expandHome(c.Vector.SQLitePath); err != nil {
			return err
		}
	}
	for i, root := range c.HTTP.AllowedRoots {
		if c.HTTP.AllowedRoots[i], err = expandHome(root); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks ranges and names
func (c *Config) Validate() error {
	if c.Search.TopK <= 0 {
		return fmt.Errorf("%w: search.top_k must be positive, got %d", ErrInvalidConfig, c.Search.TopK)
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch strings.ToLower(c.Vector.Backend) {
	case storage.BackendSQLite, storage.BackendChroma:
	case storage.BackendPgVector:
		if c.Vector.DatabaseURL == "" {
			return fmt.Errorf("%w: vector.database_url is required for pgvector", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vector backend %q", ErrInvalidConfig, c.Vector.Backend)
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case "", embedder.ProviderJina, embedder.ProviderOpenAI, embedder.ProviderOllama, embedder.ProviderLocal:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.Embedding.Concurrency < 0 || c.Embedding.RatePerSecond < 0 {
		return fmt.Errorf("%w: embedding concurrency and rate must not be negative", ErrInvalidConfig)
	}
	if c.Embedding.BatchSize < 0 || c.Embedding.BatchSize > embedder.MaxBatchSize {
		return fmt.Errorf("%w: embedding batch size must be between 0 and %d", ErrInvalidConfig, embedder.MaxBatchSize)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}

	if _, err := c.LanguageTags(); err != nil {
		return err
	}
	return nil
}

// Weights returns the configured default fusion weights
func (c *Config) Weights() types.FusionWeights {
	return types.FusionWeights{Sparse: c.Search.SparseWeight, Dense: c.Search.DenseWeight}
}

// LanguageTags parses Ingest.Languages
func (c *Config) LanguageTags() ([]types.LanguageTag, error) {
	tags := make([]types.LanguageTag, 0, len(c.Ingest.Languages))
	for _, name := range c.Ingest.Languages {
		tag, ok := language.ParseTag(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown language %q", ErrInvalidConfig, name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// CorpusPath is the bbolt file holding the chunk corpus
func (c *Config) CorpusPath() string {
	return filepath.Join(c.DataDir, "corpus.db")
}

// VectorPath is the SQLite vector store file
func (c *Config) VectorPath() string {
	if c.Vector.SQLitePath != "" {
		return c.Vector.SQLitePath
	}
	return filepath.Join(c.DataDir, "vectors.db")
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// splitList splits a comma separated value, dropping blanks
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
