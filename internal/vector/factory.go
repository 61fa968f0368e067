package vector

import "fmt"

// IndexType represents the type of vector engine to use.
type IndexType string

const (
	// IndexTypeMemory uses an in-memory exact scan. Good for small and medium corpora.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS uses a FAISS IndexFlatL2.
	// Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewEngine creates a vector engine of the specified type.
// Supported types: "memory" (default), "faiss".
// FAISS requires building with -tags=faiss and having FAISS library installed.
func NewEngine(indexType string, dimensions int) (Engine, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewFlatEngine(dimensions)
	case IndexTypeFAISS:
		return NewFAISSEngine(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	e, err := NewFAISSEngine(1)
	if err != nil {
		return false
	}
	_ = e.Close()
	return true
}
