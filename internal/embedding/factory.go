package embedding

import (
	"context"
	"fmt"
)

// Provider identifies the embedding backend.
type Provider string

const (
	// ProviderONNX runs a local ONNX model (requires CGO and onnxruntime).
	ProviderONNX Provider = "onnx"
	// ProviderOllama calls a local Ollama server.
	ProviderOllama Provider = "ollama"
	// ProviderMock produces deterministic hash-derived vectors (tests only).
	ProviderMock Provider = "mock"
)

// Options configures NewEmbedder.
type Options struct {
	Provider   Provider
	ModelPath  string // ONNX model file
	BaseURL    string // Ollama server URL
	Model      string // Ollama model name
	Dimensions int
	MaxTokens  int
	CacheSize  int
}

// NewEmbedder creates the configured embedding backend. A nil-embedder error
// return means the semantic features degrade to literal-only; callers must
// treat it as a soft failure, not a fatal one.
func NewEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderONNX, "":
		e, err := NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens, opts.CacheSize)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderOllama:
		return NewOllamaEmbedder(ctx, opts.BaseURL, opts.Model, opts.Dimensions, opts.CacheSize)
	case ProviderMock:
		return NewMockEmbedder(opts.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, ollama, mock)", opts.Provider)
	}
}
