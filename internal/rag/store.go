package rag

import (
	"context"

	"github.com/hyperjump/kotae/internal/vector"
)

// DocumentStore dereferences retrieval positions into documents.
type DocumentStore interface {
	Document(pos int) (string, bool)
	DocumentCount() int
}

// VectorSearch finds the nearest stored vectors to a query.
type VectorSearch interface {
	Nearest(ctx context.Context, query []float32, k int) ([]vector.Neighbor, error)
	Dimensions() int
}

// Store is what the answerer needs from an index.
type Store interface {
	DocumentStore
	VectorSearch
}

var _ Store = (*vector.Index)(nil)

// QueryEmbedder encodes a query into the index's vector space.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LanguageModel completes a prompt.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// WebSearch returns a pre-summarized snippet blob for a query.
type WebSearch interface {
	Search(ctx context.Context, query string) (string, error)
}
