package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. CODERAG_EMBEDDING_PROVIDER (jina, openai, ollama, local)
// 2. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
// 3. OLLAMA_BASE_URL selects ollama
// 4. Default to local if nothing is configured
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider:  DetectProvider(),
		Model:     os.Getenv(EnvModel),
		CacheSize: 10000,
	})
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	opts := []ProviderOption{WithModel(cfg.Model), WithBaseURL(cfg.BaseURL)}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache, opts...)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache, opts...)
	case ProviderOllama:
		return NewOllamaProvider(cache, opts...)
	case ProviderLocal, "":
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	if os.Getenv(EnvOllamaBaseURL) != "" {
		return ProviderOllama
	}

	return ProviderLocal
}
