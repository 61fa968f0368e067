package rag

import (
	"context"
	"sync/atomic"

	"github.com/hyperjump/kotae/internal/vector"
)

type fakeStore struct {
	docs      []string
	neighbors []vector.Neighbor
	err       error
	dims      int
}

func (s *fakeStore) Document(pos int) (string, bool) {
	if pos < 0 || pos >= len(s.docs) {
		return "", false
	}
	return s.docs[pos], true
}

func (s *fakeStore) DocumentCount() int { return len(s.docs) }

func (s *fakeStore) Nearest(_ context.Context, _ []float32, k int) ([]vector.Neighbor, error) {
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.neighbors) {
		return s.neighbors[:k], nil
	}
	return s.neighbors, nil
}

func (s *fakeStore) Dimensions() int { return s.dims }

type fakeEmbedder struct {
	err   error
	calls atomic.Int32
}

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0, 0}, nil
}

type countingModel struct {
	reply  string
	err    error
	calls  atomic.Int32
	prompt atomic.Value
}

func (m *countingModel) Complete(_ context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	m.prompt.Store(prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *countingModel) lastPrompt() string {
	p, _ := m.prompt.Load().(string)
	return p
}

type fakeWeb struct {
	summary string
	err     error
	calls   atomic.Int32
}

func (w *fakeWeb) Search(ctx context.Context, _ string) (string, error) {
	w.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return w.summary, w.err
}
