package embedding

import (
	"context"
	"fmt"

	ollamaEmbed "github.com/cloudwego/eino-ext/components/embedding/ollama"
	einoembedding "github.com/cloudwego/eino/components/embedding"
)

// DefaultOllamaURL is the local Ollama endpoint.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaEmbedder embeds text through a local Ollama server. It adapts the
// Eino embedding component to the Embedder interface and adds an LRU cache.
type OllamaEmbedder struct {
	inner      einoembedding.Embedder
	dimensions int
	cache      *Cache
}

// NewOllamaEmbedder creates an Ollama-backed embedder for the given model.
// baseURL defaults to DefaultOllamaURL when empty.
func NewOllamaEmbedder(ctx context.Context, baseURL, model string, dimensions, cacheSize int) (*OllamaEmbedder, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		return nil, fmt.Errorf("ollama embedding model is required")
	}
	inner, err := ollamaEmbed.NewEmbedder(ctx, &ollamaEmbed.EmbeddingConfig{
		BaseURL: baseURL,
		Model:   model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama embedder: %w", err)
	}
	return &OllamaEmbedder{
		inner:      inner,
		dimensions: dimensions,
		cache:      NewCache(cacheSize),
	}, nil
}

// Embed returns the normalized embedding for text, using cache when available.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request and normalizes the results.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	raw, err := e.inner.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding failed: %w", err)
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(raw), len(texts))
	}
	out := make([][]float32, len(raw))
	for i, v := range raw {
		if len(v) != e.dimensions {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(v), e.dimensions)
		}
		emb := make([]float32, len(v))
		for j, f := range v {
			emb[j] = float32(f)
		}
		NormalizeL2(emb)
		out[i] = emb
		e.cache.Set(texts[i], emb)
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (e *OllamaEmbedder) Close() error {
	return nil
}
