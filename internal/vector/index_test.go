package vector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// tableEmbedder maps known texts to fixed vectors and counts batch calls.
type tableEmbedder struct {
	dim     int
	vectors map[string][]float32
	calls   int
	err     error
}

func (e *tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := e.vectors[text]
		if !ok {
			v = make([]float32, e.dim)
			v[0] = float32(len(text))
		}
		out[i] = v
	}
	return out, nil
}

func (e *tableEmbedder) Dimensions() int { return e.dim }

func newTestIndex(t *testing.T, emb *tableEmbedder, opts ...IndexOption) *Index {
	t.Helper()
	engine, err := NewFlatEngine(emb.dim)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := NewIndex(engine, emb, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func capitals() *tableEmbedder {
	return &tableEmbedder{dim: 3, vectors: map[string][]float32{
		"Paris is the capital of France.":   {1, 0, 0},
		"Berlin is the capital of Germany.": {0, 1, 0},
		"Rome is the capital of Italy.":     {0, 0, 1},
	}}
}

func TestNewIndex_Validation(t *testing.T) {
	engine, _ := NewFlatEngine(3)
	if _, err := NewIndex(nil, capitals()); err == nil {
		t.Error("expected error for nil engine")
	}
	if _, err := NewIndex(engine, nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewIndex(engine, &tableEmbedder{dim: 4}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestIndex_AddThenSearchFindsExactDocument(t *testing.T) {
	emb := capitals()
	idx := newTestIndex(t, emb)
	ctx := context.Background()

	n, err := idx.Add(ctx, []string{
		"Paris is the capital of France.",
		"Berlin is the capital of Germany.",
		"Rome is the capital of Italy.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("added %d, want 3", n)
	}
	if emb.calls != 1 {
		t.Errorf("expected one batch embedding call, got %d", emb.calls)
	}

	hits, err := idx.Search(ctx, []float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Document != "Berlin is the capital of Germany." || hits[0].Distance != 0 {
		t.Errorf("top hit = %+v", hits[0])
	}
	if hits[1].Position != 0 {
		t.Errorf("tie between Paris and Rome should go to the earlier document, got %+v", hits[1])
	}
}

func TestIndex_AddSkipsBlankAndTrims(t *testing.T) {
	emb := capitals()
	idx := newTestIndex(t, emb)
	ctx := context.Background()

	n, err := idx.Add(ctx, []string{"", "  Paris is the capital of France.\n", "   ", "\t"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("added %d, want 1", n)
	}
	if doc, ok := idx.Document(0); !ok || doc != "Paris is the capital of France." {
		t.Errorf("Document(0)=%q, %v", doc, ok)
	}
	if idx.DocumentCount() != idx.Size() {
		t.Errorf("documents %d != vectors %d", idx.DocumentCount(), idx.Size())
	}
}

func TestIndex_AddEmptyInput(t *testing.T) {
	emb := capitals()
	idx := newTestIndex(t, emb)
	ctx := context.Background()

	for _, input := range [][]string{nil, {}, {"", "   "}} {
		n, err := idx.Add(ctx, input)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Add(%q): expected ErrEmptyInput, got %v", input, err)
		}
		if n != 0 {
			t.Errorf("Add(%q) returned %d", input, n)
		}
	}
	if idx.Size() != 0 || idx.DocumentCount() != 0 {
		t.Errorf("index changed: size=%d docs=%d", idx.Size(), idx.DocumentCount())
	}
	if emb.calls != 0 {
		t.Errorf("embedder should not be called, got %d calls", emb.calls)
	}
}

func TestIndex_AddGrowsWithoutDedup(t *testing.T) {
	idx := newTestIndex(t, capitals())
	ctx := context.Background()
	docs := []string{"Paris is the capital of France.", "Paris is the capital of France."}
	if _, err := idx.Add(ctx, docs); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Add(ctx, docs[:1]); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 || idx.DocumentCount() != 3 {
		t.Errorf("size=%d docs=%d, want 3 and 3", idx.Size(), idx.DocumentCount())
	}
}

func TestIndex_AddEmbedderFailureLeavesIndexUnchanged(t *testing.T) {
	emb := capitals()
	emb.err = errors.New("model offline")
	idx := newTestIndex(t, emb)
	if _, err := idx.Add(context.Background(), []string{"Paris is the capital of France."}); err == nil {
		t.Fatal("expected error")
	}
	if idx.Size() != 0 || idx.DocumentCount() != 0 {
		t.Errorf("index changed after failed add")
	}
}

func TestIndex_SearchEmptyIndex(t *testing.T) {
	idx := newTestIndex(t, capitals())
	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("search on empty index should not fail: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestIndex_SearchDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t, capitals())
	_, _ = idx.Add(context.Background(), []string{"Paris is the capital of France."})
	_, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestIndex_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "indexes", "kotae.index")

	idx := newTestIndex(t, capitals())
	_, _ = idx.Add(ctx, []string{
		"Paris is the capital of France.",
		"Berlin is the capital of Germany.",
		"Rome is the capital of Italy.",
	})
	query := []float32{0.2, 0.7, 0.1}
	before, err := idx.Search(ctx, query, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "kotae.docs")); err != nil {
		t.Fatalf("document artifact not written: %v", err)
	}

	fresh := newTestIndex(t, capitals())
	if err := fresh.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	after, err := fresh.Search(ctx, query, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Fatalf("got %d hits after load, want %d", len(after), len(before))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("hit %d: before %+v, after %+v", i, before[i], after[i])
		}
	}
}

func TestIndex_LoadMissingVectors(t *testing.T) {
	idx := newTestIndex(t, capitals())
	err := idx.Load(filepath.Join(t.TempDir(), "absent.index"))
	if !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndex_LoadCorruptVectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.index")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}
	idx := newTestIndex(t, capitals())
	if err := idx.Load(path); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestIndex_LoadCorruptDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kotae.index")
	idx := newTestIndex(t, capitals())
	_, _ = idx.Add(ctx, []string{"Paris is the capital of France."})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(DocumentsPath(path), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	fresh := newTestIndex(t, capitals())
	if err := fresh.Load(path); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex, got %v", err)
	}
	if fresh.Size() != 0 {
		t.Errorf("failed load should leave the index empty, size=%d", fresh.Size())
	}
}

func TestIndex_LoadMissingDocumentsWarnsAndFilters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kotae.index")
	idx := newTestIndex(t, capitals())
	_, _ = idx.Add(ctx, []string{"Paris is the capital of France.", "Rome is the capital of Italy."})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(DocumentsPath(path)); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zapcore.WarnLevel)
	fresh := newTestIndex(t, capitals(), WithLogger(zap.New(core)))
	if err := fresh.Load(path); err != nil {
		t.Fatalf("Load should tolerate a missing document artifact: %v", err)
	}
	if logs.Len() != 1 {
		t.Errorf("expected one warning, got %d", logs.Len())
	}
	if fresh.Size() != 2 || fresh.DocumentCount() != 0 {
		t.Errorf("size=%d docs=%d, want 2 vectors and no documents", fresh.Size(), fresh.DocumentCount())
	}
	hits, err := fresh.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("positions past the document list must be dropped, got %+v", hits)
	}
}

func TestIndex_ConcurrentSearch(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, capitals())
	_, _ = idx.Add(ctx, []string{"Paris is the capital of France.", "Rome is the capital of Italy."})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := idx.Search(ctx, []float32{1, 0, 0}, 1); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = idx.Add(ctx, []string{"Berlin is the capital of Germany."})
	}()
	wg.Wait()
	if idx.DocumentCount() != idx.Size() {
		t.Errorf("documents %d != vectors %d", idx.DocumentCount(), idx.Size())
	}
}

func TestDocumentsPath(t *testing.T) {
	tests := map[string]string{
		"/data/faiss.index": "/data/faiss.docs",
		"kotae":             "kotae.docs",
		"a/b.c/index.bin":   "a/b.c/index.docs",
	}
	for in, want := range tests {
		if got := DocumentsPath(in); got != want {
			t.Errorf("DocumentsPath(%q)=%q, want %q", in, got, want)
		}
	}
}
