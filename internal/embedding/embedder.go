// Package embedding provides text embedding via ONNX Runtime, OpenAI-compatible
// APIs, and a deterministic mock, with an LRU cache.
package embedding

import "context"

// Embedder produces vector embeddings for text. All vectors from one Embedder have
// Dimensions() elements and identical input yields identical output.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Provider names accepted by New and the embedding.provider config key.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)
