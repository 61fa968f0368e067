package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string, seen *serperRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *SerperClient {
	t.Helper()
	c, err := NewSerperClient(SerperConfig{APIKey: "test-key", Endpoint: url})
	require.NoError(t, err)
	return c
}

func TestSerperClient_Search_Organic(t *testing.T) {
	var seen serperRequest
	body := `{"organic":[
		{"title":"a","snippet":"first"},
		{"title":"b","snippet":"second"},
		{"title":"c","snippet":""},
		{"title":"d","snippet":"fourth"},
		{"title":"e","snippet":"fifth"}
	]}`
	srv := newTestServer(t, http.StatusOK, body, &seen)

	got, err := newTestClient(t, srv.URL).Search(context.Background(), "новости")
	require.NoError(t, err)
	assert.Equal(t, "first second fourth", got)
	assert.Equal(t, serperRequest{Q: "новости", GL: "ru", HL: "ru", Num: 4}, seen)
}

func TestSerperClient_Search_AnswerBoxWins(t *testing.T) {
	body := `{"answerBox":{"answer":"42"},"organic":[{"snippet":"ignored"}]}`
	srv := newTestServer(t, http.StatusOK, body, nil)

	got, err := newTestClient(t, srv.URL).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestSerperClient_Search_KnowledgeGraph(t *testing.T) {
	body := `{"knowledgeGraph":{"title":"Go","type":"Language","description":"Compiled.","attributes":{"Designer":"Pike"}}}`
	srv := newTestServer(t, http.StatusOK, body, nil)

	got, err := newTestClient(t, srv.URL).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Go: Language. Compiled. Go Designer: Pike.", got)
}

func TestSerperClient_Search_NoResults(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"organic":[]}`, nil)

	_, err := newTestClient(t, srv.URL).Search(context.Background(), "q")
	assert.True(t, errors.Is(err, ErrNoResults))
}

func TestSerperClient_Search_HTTPError(t *testing.T) {
	srv := newTestServer(t, http.StatusForbidden, `{"message":"bad key"}`, nil)

	_, err := newTestClient(t, srv.URL).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.False(t, errors.Is(err, ErrNoResults))
}

func TestSerperClient_Search_Canceled(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"organic":[{"snippet":"x"}]}`, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, srv.URL).Search(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSerperClient_RequiresKey(t *testing.T) {
	_, err := NewSerperClient(SerperConfig{})
	assert.Error(t, err)
}
