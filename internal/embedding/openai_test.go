package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingsServer answers /v1/embeddings with a vector per input whose first
// component is the input length, returned in reverse order to exercise index mapping.
func fakeEmbeddingsServer(t *testing.T, dim int, requests *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			v := make([]float32, dim)
			v[0] = float32(len(req.Input[i]))
			v[1] = 1
			data = append(data, item{Object: "embedding", Embedding: v, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
}

func TestOpenAIEmbedder_EmbedBatchPreservesOrder(t *testing.T) {
	var requests int32
	srv := fakeEmbeddingsServer(t, 3, &requests)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Dimensions: 3, BatchSize: 2})
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bbbb", "cc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests), "three inputs with batch size 2 need two requests")

	// Vectors are normalized, so compare the ratio of the first two components.
	assert.InDelta(t, 1.0, vecs[0][0]/vecs[0][1], 1e-5)
	assert.InDelta(t, 4.0, vecs[1][0]/vecs[1][1], 1e-5)
	assert.InDelta(t, 2.0, vecs[2][0]/vecs[2][1], 1e-5)
}

func TestOpenAIEmbedder_EmbedUsesCache(t *testing.T) {
	var requests int32
	srv := fakeEmbeddingsServer(t, 2, &requests)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Dimensions: 2, CacheSize: 4})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := e.Embed(ctx, "вопрос")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "вопрос")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	var requests int32
	srv := fakeEmbeddingsServer(t, 4, &requests)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Dimensions: 3})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestOpenAIEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Dimensions: 3})
	require.NoError(t, err)
	_, err = e.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestNewOpenAIEmbedder_Validation(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{Dimensions: 3})
	assert.Error(t, err, "missing API key")
	_, err = NewOpenAIEmbedder(OpenAIConfig{APIKey: "k"})
	assert.Error(t, err, "missing dimensions")

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", Dimensions: 1536})
	require.NoError(t, err)
	assert.Equal(t, 1536, e.Dimensions())
	assert.Equal(t, DefaultOpenAIModel, e.model)
}
