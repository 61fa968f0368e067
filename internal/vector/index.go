package vector

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// BatchEmbedder turns documents into vectors. embedding.Embedder satisfies it.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Hit is a search result with its document dereferenced.
type Hit struct {
	Position int     `json:"position"`
	Document string  `json:"document"`
	Distance float32 `json:"distance"`
}

// Index owns an ordered list of documents and a parallel vector engine. The i-th vector
// belongs to the i-th document. Searches run concurrently; Add, Save and Load are exclusive.
type Index struct {
	mu       sync.RWMutex
	engine   Engine
	embedder BatchEmbedder
	docs     []string
	logger   *zap.Logger
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithLogger sets a logger for load warnings and debug output.
func WithLogger(l *zap.Logger) IndexOption {
	return func(x *Index) {
		if l != nil {
			x.logger = l
		}
	}
}

// NewIndex creates an empty index over engine. The embedder must produce vectors of the
// engine's dimension.
func NewIndex(engine Engine, embedder BatchEmbedder, opts ...IndexOption) (*Index, error) {
	if engine == nil {
		return nil, errors.New("vector: engine must not be nil")
	}
	if embedder == nil {
		return nil, errors.New("vector: embedder must not be nil")
	}
	if embedder.Dimensions() != engine.Dimensions() {
		return nil, fmt.Errorf("%w: embedder produces %d, engine expects %d",
			ErrDimensionMismatch, embedder.Dimensions(), engine.Dimensions())
	}
	x := &Index{
		engine:   engine,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

// Add embeds and appends documents in order. Blank documents are skipped and the rest
// are stored trimmed; nothing is deduplicated. Returns the number of documents added,
// or ErrEmptyInput when none remain.
func (x *Index) Add(ctx context.Context, raw []string) (int, error) {
	docs := make([]string, 0, len(raw))
	for _, d := range raw {
		if d = strings.TrimSpace(d); d != "" {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 {
		return 0, ErrEmptyInput
	}
	vectors, err := x.embedder.EmbedBatch(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return 0, fmt.Errorf("embed documents: got %d vectors for %d documents", len(vectors), len(docs))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.engine.Add(ctx, vectors); err != nil {
		return 0, fmt.Errorf("add vectors: %w", err)
	}
	x.docs = append(x.docs, docs...)
	x.logger.Debug("documents added",
		zap.Int("added", len(docs)),
		zap.Int("documents", len(x.docs)),
		zap.Int("vectors", x.engine.Size()))
	return len(docs), nil
}

// Nearest returns up to k positions closest to query by squared L2 distance, ascending,
// ties broken by insertion order. Positions without a stored document are dropped.
// An empty index yields an empty result.
func (x *Index) Nearest(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.nearestLocked(ctx, query, k)
}

func (x *Index) nearestLocked(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if dim := x.engine.Dimensions(); len(query) != dim {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), dim)
	}
	if k <= 0 || x.engine.Size() == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := x.engine.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}
	out := found[:0]
	for _, n := range found {
		if n.Position >= 0 && n.Position < len(x.docs) {
			out = append(out, n)
		}
	}
	if dropped := len(found) - len(out); dropped > 0 {
		x.logger.Debug("dropped positions without documents",
			zap.Int("dropped", dropped),
			zap.Int("documents", len(x.docs)))
	}
	return out, nil
}

// Search is Nearest with the documents attached. The returned strings are copies of the
// stored documents and stay valid after later mutations.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	found, err := x.nearestLocked(ctx, query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(found))
	for i, n := range found {
		hits[i] = Hit{Position: n.Position, Document: x.docs[n.Position], Distance: n.Distance}
	}
	return hits, nil
}

// Document returns the document stored at pos.
func (x *Index) Document(pos int) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if pos < 0 || pos >= len(x.docs) {
		return "", false
	}
	return x.docs[pos], true
}

// DocumentCount returns the number of stored documents.
func (x *Index) DocumentCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// Size returns the number of stored vectors. It can exceed DocumentCount after loading an
// index whose document artifact was missing.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.engine.Size()
}

// Dimensions returns the vector dimension.
func (x *Index) Dimensions() int {
	return x.engine.Dimensions()
}

// Type returns the engine type.
func (x *Index) Type() string {
	return x.engine.Type()
}

// DocumentsPath returns the path of the document artifact paired with the vector artifact
// at path: same directory and base name, extension ".docs".
func DocumentsPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".docs"
}

// Save writes the vector artifact to path and the document artifact to DocumentsPath(path).
func (x *Index) Save(path string) error {
	if path == "" {
		return errors.New("vector: empty index path")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.engine.Save(path); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := saveDocuments(DocumentsPath(path), x.docs); err != nil {
		return fmt.Errorf("save documents: %w", err)
	}
	x.logger.Debug("index saved",
		zap.String("path", path),
		zap.Int("documents", len(x.docs)),
		zap.Int("vectors", x.engine.Size()))
	return nil
}

// Load replaces the index contents with the artifacts at path. It returns ErrIndexNotFound
// when the vector artifact does not exist and ErrCorruptIndex when an artifact cannot be
// decoded. A missing document artifact is logged and loads as an empty document list.
func (x *Index) Load(path string) error {
	if path == "" {
		return errors.New("vector: empty index path")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	docsPath := DocumentsPath(path)
	docs, err := loadDocuments(docsPath)
	missingDocs := errors.Is(err, fs.ErrNotExist)
	if err != nil && !missingDocs {
		return fmt.Errorf("%w: documents %s: %v", ErrCorruptIndex, docsPath, err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.engine.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return fmt.Errorf("%w: vectors %s: %v", ErrCorruptIndex, path, err)
	}
	if missingDocs {
		x.logger.Warn("document artifact not found, loading with no documents",
			zap.String("path", docsPath),
			zap.Int("vectors", x.engine.Size()))
		docs = nil
	} else if len(docs) != x.engine.Size() {
		x.logger.Warn("document and vector counts differ",
			zap.Int("documents", len(docs)),
			zap.Int("vectors", x.engine.Size()))
	}
	x.docs = docs
	x.logger.Debug("index loaded",
		zap.String("path", path),
		zap.Int("documents", len(x.docs)),
		zap.Int("vectors", x.engine.Size()))
	return nil
}

// Close releases the engine.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.engine.Close()
}

func saveDocuments(path string, docs []string) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []string{}
	}
	if err := gob.NewEncoder(f).Encode(docs); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("encode documents: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}

func loadDocuments(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var docs []string
	if err := gob.NewDecoder(f).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return docs, nil
}
