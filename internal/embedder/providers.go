package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text"
	DefaultLocalModel  = "local-hashing"

	// Default endpoints
	DefaultJinaBaseURL   = "https://api.jina.ai/v1"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOllamaBaseURL = "http://localhost:11434"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	OllamaDimension = 768
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	// DefaultHTTPTimeout bounds one provider call
	DefaultHTTPTimeout = 30 * time.Second
)

// Environment variables read by the providers and the factory
const (
	EnvProvider      = "CODERAG_EMBEDDING_PROVIDER"
	EnvModel         = "CODERAG_EMBEDDING_MODEL"
	EnvJinaAPIKey    = "JINA_API_KEY"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOllamaBaseURL = "OLLAMA_BASE_URL"
)

var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// APIError is a non-200 response from an embedding endpoint
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed when repeated
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ProviderOption customizes a remote provider
type ProviderOption func(*remoteConfig)

type remoteConfig struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// WithBaseURL overrides the provider endpoint
func WithBaseURL(url string) ProviderOption {
	return func(c *remoteConfig) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel overrides the provider's default model
func WithModel(model string) ProviderOption {
	return func(c *remoteConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(c *remoteConfig) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func newRemoteConfig(baseURL, model string, opts []ProviderOption) remoteConfig {
	cfg := remoteConfig{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// postJSON sends body to url and decodes a 200 response into out
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// embeddingsAPI is the request/response shape shared by OpenAI and Jina
type embeddingsAPI struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	provider string
}

func (a *embeddingsAPI) call(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": model,
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := postJSON(ctx, a.client, a.baseURL+"/embeddings", a.apiKey, reqBody, &apiResp); err != nil {
		return nil, err
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(apiResp.Data))
	}

	sort.Slice(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})

	if apiResp.Model == "" {
		apiResp.Model = model
	}
	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  a.provider,
			Model:     apiResp.Model,
		}
	}
	return embeddings, nil
}

// remoteProvider implements the cache and validation logic shared by the
// batch-capable HTTP providers
type remoteProvider struct {
	api       *embeddingsAPI
	model     string
	dimension int
	cache     *Cache
}

func (r *remoteProvider) generateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = r.model
	}
	if r.cache != nil {
		if emb, ok := r.cache.Get(cacheKey(model, req.Text)); ok {
			return emb, nil
		}
	}

	resp, err := r.generateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: model,
	})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (r *remoteProvider) generateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = r.model
	}

	embeddings, err := r.api.call(ctx, req.Texts, model)
	if err != nil {
		return nil, &EmbeddingError{Provider: r.api.provider, Err: err}
	}

	if r.cache != nil {
		for i, emb := range embeddings {
			emb.Hash = ComputeHash(req.Texts[i])
			r.cache.Set(cacheKey(model, req.Texts[i]), emb)
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   r.api.provider,
		Model:      model,
	}, nil
}

func (r *remoteProvider) close() error {
	r.api.client.CloseIdleConnections()
	return nil
}

// JinaProvider implements Embedder using Jina AI API
type JinaProvider struct {
	remoteProvider
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(apiKey string, cache *Cache, opts ...ProviderOption) (*JinaProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvJinaAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
	}

	cfg := newRemoteConfig(DefaultJinaBaseURL, DefaultJinaModel, opts)
	return &JinaProvider{remoteProvider{
		api:       &embeddingsAPI{client: cfg.httpClient, baseURL: cfg.baseURL, apiKey: apiKey, provider: ProviderJina},
		model:     cfg.model,
		dimension: JinaDimension,
		cache:     cache,
	}}, nil
}

func (j *JinaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return j.generateEmbedding(ctx, req)
}

func (j *JinaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	return j.generateBatch(ctx, req)
}

func (j *JinaProvider) Dimension() int {
	return j.dimension
}

func (j *JinaProvider) Provider() string {
	return ProviderJina
}

func (j *JinaProvider) Model() string {
	return j.model
}

func (j *JinaProvider) Close() error {
	return j.close()
}

// OpenAIProvider implements Embedder using OpenAI API
type OpenAIProvider struct {
	remoteProvider
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(apiKey string, cache *Cache, opts ...ProviderOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}

	cfg := newRemoteConfig(DefaultOpenAIBaseURL, DefaultOpenAIModel, opts)
	dim, ok := openAIDimensions[cfg.model]
	if !ok {
		dim = OpenAIDimension
	}
	return &OpenAIProvider{remoteProvider{
		api:       &embeddingsAPI{client: cfg.httpClient, baseURL: cfg.baseURL, apiKey: apiKey, provider: ProviderOpenAI},
		model:     cfg.model,
		dimension: dim,
		cache:     cache,
	}}, nil
}

func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return o.generateEmbedding(ctx, req)
}

func (o *OpenAIProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	return o.generateBatch(ctx, req)
}

func (o *OpenAIProvider) Dimension() int {
	return o.dimension
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	return o.close()
}

// LocalProvider embeds text offline with signed feature hashing of its
// lowercase word tokens. Texts sharing vocabulary get similar vectors.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: DefaultLocalModel,
		cache: cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:    hashingVector(req.Text, LocalDimension),
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}

	if l.cache != nil {
		l.cache.Set(hash, emb)
	}

	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashingVector builds a unit vector from word tokens. Text without word
// characters is seeded from its SHA-256 digest instead.
func hashingVector(text string, dim int) []float32 {
	vector := make([]float32, dim)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vector[sum%uint64(dim)] += sign
	}

	if len(tokens) == 0 {
		digest := sha256.Sum256([]byte(text))
		for i := 0; i < dim && i < len(digest); i++ {
			vector[i] = float32(digest[i]) / 255.0
		}
	}

	return NormalizeVector(vector)
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
