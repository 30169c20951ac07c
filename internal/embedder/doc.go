// Package embedder turns chunk text into dense vectors.
//
// Four providers implement the Embedder interface:
//   - Jina AI (jina-embeddings-v3, 1024 dimensions)
//   - OpenAI (text-embedding-3-small, 1536 dimensions)
//   - Ollama (nomic-embed-text, 768 dimensions, no API key)
//   - Local (signed feature hashing, 384 dimensions, fully offline)
//
// Provider selection follows the environment:
//
//	CODERAG_EMBEDDING_PROVIDER   explicit choice: jina, openai, ollama or local
//	JINA_API_KEY                 selects Jina when no provider is named
//	OPENAI_API_KEY               selects OpenAI when no Jina key is set
//	OLLAMA_BASE_URL              selects Ollama when no API key is set
//
// Without any of these the local provider is used, so indexing always works
// offline.
//
// # Usage
//
//	e, err := embedder.NewFromEnv()
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//
//	pool := embedder.NewPool(embedder.WithRetry(e, embedder.DefaultRetryConfig()),
//	    embedder.DefaultPoolConfig(), logger)
//	vectors, errs := pool.EmbedAll(ctx, texts)
//
// EmbedAll never aborts on a single failure: errs[i] reports why texts[i]
// has no vector and the caller decides what to drop.
//
// # Caching
//
// Providers share an LRU cache keyed by model and the SHA-256 of the text.
// Cached vectors are copied on read.
//
// # Retries
//
// Providers make exactly one HTTP call per request. WithRetry adds
// exponential backoff on top; 429 and 5xx responses and transport errors are
// retried, validation failures and other 4xx responses are not.
package embedder
