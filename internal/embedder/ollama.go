package embedder

import (
	"context"
	"fmt"
	"os"
)

// OllamaProvider implements Embedder against a local Ollama server
type OllamaProvider struct {
	cfg   remoteConfig
	cache *Cache
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaProvider creates an Ollama embedder. The base URL defaults to
// OLLAMA_BASE_URL, then http://localhost:11434.
func NewOllamaProvider(cache *Cache, opts ...ProviderOption) (*OllamaProvider, error) {
	base := os.Getenv(EnvOllamaBaseURL)
	if base == "" {
		base = DefaultOllamaBaseURL
	}
	return &OllamaProvider{
		cfg:   newRemoteConfig(base, DefaultOllamaModel, opts),
		cache: cache,
	}, nil
}

func (o *OllamaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.cfg.model
	}
	key := cacheKey(model, req.Text)
	if o.cache != nil {
		if emb, ok := o.cache.Get(key); ok {
			return emb, nil
		}
	}

	var resp ollamaResponse
	err := postJSON(ctx, o.cfg.httpClient, o.cfg.baseURL+"/api/embeddings", "", ollamaRequest{Model: model, Prompt: req.Text}, &resp)
	if err != nil {
		return nil, &EmbeddingError{Provider: ProviderOllama, Err: err}
	}
	if len(resp.Embedding) == 0 {
		return nil, &EmbeddingError{Provider: ProviderOllama, Err: fmt.Errorf("empty embedding for model %s", model)}
	}

	vector := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vector[i] = float32(v)
	}
	emb := &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  ProviderOllama,
		Model:     model,
		Hash:      ComputeHash(req.Text),
	}
	if o.cache != nil {
		o.cache.Set(key, emb)
	}
	return emb, nil
}

// GenerateBatch embeds texts one by one; the endpoint takes a single prompt
func (o *OllamaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := o.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	model := req.Model
	if model == "" {
		model = o.cfg.model
	}
	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOllama,
		Model:      model,
	}, nil
}

func (o *OllamaProvider) Dimension() int {
	return OllamaDimension
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.cfg.model
}

func (o *OllamaProvider) Close() error {
	o.cfg.httpClient.CloseIdleConnections()
	return nil
}
