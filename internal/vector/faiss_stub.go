//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"context"
	"errors"
)

var errFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install FAISS library")

// FAISSEngine is a stub that returns an error when FAISS is not available.
// Build with -tags=faiss to enable FAISS support.
type FAISSEngine struct{}

// NewFAISSEngine returns an error because FAISS is not available.
func NewFAISSEngine(dimensions int) (*FAISSEngine, error) {
	return nil, errFAISSUnavailable
}

// Add is not implemented without FAISS.
func (f *FAISSEngine) Add(ctx context.Context, vectors [][]float32) error { return errFAISSUnavailable }

// Search is not implemented without FAISS.
func (f *FAISSEngine) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	return nil, errFAISSUnavailable
}

// Save is not implemented without FAISS.
func (f *FAISSEngine) Save(path string) error { return errFAISSUnavailable }

// Load is not implemented without FAISS.
func (f *FAISSEngine) Load(path string) error { return errFAISSUnavailable }

// Size returns 0 without FAISS.
func (f *FAISSEngine) Size() int { return 0 }

// Dimensions returns 0 without FAISS.
func (f *FAISSEngine) Dimensions() int { return 0 }

// Type returns the engine type.
func (f *FAISSEngine) Type() string { return string(IndexTypeFAISS) }

// Close is a no-op without FAISS.
func (f *FAISSEngine) Close() error { return nil }
