package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearProviderEnv blanks every variable DetectProvider looks at
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvProvider, EnvModel, EnvJinaAPIKey, EnvOpenAIAPIKey, EnvOllamaBaseURL} {
		t.Setenv(key, "")
	}
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{"explicit jina", map[string]string{EnvProvider: "jina"}, ProviderJina},
		{"explicit openai", map[string]string{EnvProvider: "OpenAI"}, ProviderOpenAI},
		{"explicit ollama", map[string]string{EnvProvider: "ollama"}, ProviderOllama},
		{"explicit local beats keys", map[string]string{EnvProvider: "local", EnvJinaAPIKey: "k"}, ProviderLocal},
		{"jina key", map[string]string{EnvJinaAPIKey: "k"}, ProviderJina},
		{"openai key", map[string]string{EnvOpenAIAPIKey: "k"}, ProviderOpenAI},
		{"jina before openai", map[string]string{EnvJinaAPIKey: "a", EnvOpenAIAPIKey: "b"}, ProviderJina},
		{"openai before ollama", map[string]string{EnvOpenAIAPIKey: "b", EnvOllamaBaseURL: "http://gpu:11434"}, ProviderOpenAI},
		{"ollama url", map[string]string{EnvOllamaBaseURL: "http://gpu:11434"}, ProviderOllama},
		{"nothing configured", nil, ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.expected, DetectProvider())
		})
	}
}

func TestNew(t *testing.T) {
	clearProviderEnv(t)

	t.Run("empty provider is local", func(t *testing.T) {
		e, err := New(Config{})
		require.NoError(t, err)
		assert.Equal(t, ProviderLocal, e.Provider())
		assert.Equal(t, LocalDimension, e.Dimension())
	})

	t.Run("jina with explicit key and model", func(t *testing.T) {
		e, err := New(Config{Provider: " Jina ", APIKey: "k", Model: "jina-embeddings-v2-base-code"})
		require.NoError(t, err)
		assert.Equal(t, ProviderJina, e.Provider())
		assert.Equal(t, "jina-embeddings-v2-base-code", e.Model())
	})

	t.Run("openai without key", func(t *testing.T) {
		_, err := New(Config{Provider: ProviderOpenAI})
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		e, err := New(Config{Provider: ProviderOllama, BaseURL: "http://gpu:11434"})
		require.NoError(t, err)
		assert.Equal(t, DefaultOllamaModel, e.Model())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "cohere"})
		assert.ErrorIs(t, err, ErrUnsupportedModel)
	})
}

func TestNewFromEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	t.Setenv(EnvModel, "text-embedding-3-large")

	e, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, e.Provider())
	assert.Equal(t, "text-embedding-3-large", e.Model())
	assert.Equal(t, 3072, e.Dimension())
}
