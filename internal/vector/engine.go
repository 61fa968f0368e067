// Package vector provides the document vector index and its storage engines.
package vector

import "context"

// Engine stores fixed-dimension vectors by insertion position and answers exact
// nearest-neighbor queries by squared Euclidean distance. Engines are not safe for
// concurrent use on their own; Index serializes access.
type Engine interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// Neighbor is a single search hit: the insertion position of the stored vector and its
// squared Euclidean distance to the query (smaller is closer).
type Neighbor struct {
	Position int     `json:"position"`
	Distance float32 `json:"distance"`
}
