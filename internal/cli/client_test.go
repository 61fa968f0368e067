package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func TestClient_Ask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/ask" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req models.AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
			return
		}
		_ = json.NewEncoder(w).Encode(models.AskResponse{Answer: "echo: " + req.Query})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL+"/").Ask(context.Background(), models.AskRequest{Query: "привет"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "echo: привет" {
		t.Errorf("answer = %q", resp.Answer)
	}
}

func TestClient_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "validation failed"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "400: validation failed") {
		t.Errorf("expected server error, got %v", err)
	}
}

func TestClient_WatchDirectories(t *testing.T) {
	var added string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"directories": []string{"/news"}})
		case http.MethodPost:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			added, _ = body["path"].(string)
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	dirs, err := c.WatchDirectories(context.Background())
	if err != nil || len(dirs) != 1 || dirs[0] != "/news" {
		t.Errorf("dirs = %v, err = %v", dirs, err)
	}
	if err := c.AddWatchDirectory(context.Background(), "/feeds"); err != nil {
		t.Fatal(err)
	}
	if added != "/feeds" {
		t.Errorf("added = %q", added)
	}
}
