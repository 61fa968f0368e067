package benchmark

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/vector"
)

type constModel struct{}

func (constModel) Complete(context.Context, string) (string, error) {
	return "Ответ.\n---\n**Контекст:** лишнее", nil
}

func BenchmarkFlatEngineSearch(b *testing.B) {
	const dims, n = 768, 1000
	engine, _ := vector.NewFlatEngine(dims)
	ctx := context.Background()
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = make([]float32, dims)
		vecs[i][0] = float32(i) / n
	}
	_ = engine.Add(ctx, vecs)
	query := make([]float32, dims)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.Search(ctx, query, 5)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(768)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "Банк России сохранил ключевую ставку")
	}
}

func BenchmarkChunker(b *testing.B) {
	c, _ := ingest.NewChunker(ingest.DefaultChunkSize, ingest.DefaultChunkOverlap)
	text := strings.Repeat("Рубль укрепился к доллару. ", 2000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Chunk(text)
	}
}

func BenchmarkAnswererAsk(b *testing.B) {
	embedder := embedding.NewMockEmbedder(64)
	engine, _ := vector.NewFlatEngine(64)
	index, _ := vector.NewIndex(engine, embedder)
	ctx := context.Background()
	docs := make([]string, 500)
	for i := range docs {
		docs[i] = strings.Repeat("Новость дня. ", 1+i%40)
	}
	_, _ = index.Add(ctx, docs)
	a, _ := rag.NewAnswerer(index, embedder, constModel{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Ask(ctx, "Что нового?")
	}
}

func BenchmarkCleanResponse(b *testing.B) {
	raw := strings.Repeat("Длинный ответ модели. ", 200) + "\n---\n**Вопрос:** повтор"
	for i := 0; i < b.N; i++ {
		_ = rag.CleanResponse(raw)
	}
}
