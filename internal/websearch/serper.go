package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultSerperURL is the Serper Google search endpoint.
const DefaultSerperURL = "https://google.serper.dev/search"

// SerperConfig configures a SerperClient.
type SerperConfig struct {
	APIKey   string
	Endpoint string
	// Country (gl) and Language (hl) bias the results; both default to "ru".
	Country  string
	Language string
	// Num is the number of organic results requested and summarized (default 4).
	Num     int
	Timeout time.Duration
}

// SerperClient queries serper.dev and flattens the response into text.
type SerperClient struct {
	cfg    SerperConfig
	client *http.Client
	logger *zap.Logger
}

// SerperOption configures a SerperClient.
type SerperOption func(*SerperClient)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) SerperOption {
	return func(s *SerperClient) { s.client = c }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) SerperOption {
	return func(s *SerperClient) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSerperClient creates a client. An API key is required.
func NewSerperClient(cfg SerperConfig, opts ...SerperOption) (*SerperClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("websearch: serper API key not set")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultSerperURL
	}
	if cfg.Country == "" {
		cfg.Country = "ru"
	}
	if cfg.Language == "" {
		cfg.Language = "ru"
	}
	if cfg.Num <= 0 {
		cfg.Num = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	s := &SerperClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type serperRequest struct {
	Q   string `json:"q"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
	Num int    `json:"num"`
}

type serperResponse struct {
	AnswerBox *struct {
		Answer             string   `json:"answer"`
		Snippet            string   `json:"snippet"`
		SnippetHighlighted []string `json:"snippetHighlighted"`
	} `json:"answerBox"`
	KnowledgeGraph *struct {
		Title       string            `json:"title"`
		Type        string            `json:"type"`
		Description string            `json:"description"`
		Attributes  map[string]string `json:"attributes"`
	} `json:"knowledgeGraph"`
	Organic []struct {
		Title      string            `json:"title"`
		Link       string            `json:"link"`
		Snippet    string            `json:"snippet"`
		Attributes map[string]string `json:"attributes"`
	} `json:"organic"`
}

// Search runs the query and returns the summary. ErrNoResults is returned when the
// response holds no snippets.
func (s *SerperClient) Search(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(serperRequest{Q: query, GL: s.cfg.Country, HL: s.cfg.Language, Num: s.cfg.Num})
	if err != nil {
		return "", fmt.Errorf("websearch: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("websearch: build request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("websearch: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("websearch: serper returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("websearch: decode response: %w", err)
	}
	summary := summarize(&parsed, s.cfg.Num)
	s.logger.Debug("serper search done", zap.String("query", query), zap.Int("summary_len", len(summary)))
	if summary == "" {
		return "", ErrNoResults
	}
	return summary, nil
}

// summarize flattens a Serper response: a direct answer wins outright; otherwise the
// knowledge graph and up to k organic snippets are joined with spaces.
func summarize(r *serperResponse, k int) string {
	if ab := r.AnswerBox; ab != nil {
		switch {
		case strings.TrimSpace(ab.Answer) != "":
			return strings.TrimSpace(ab.Answer)
		case strings.TrimSpace(ab.Snippet) != "":
			return strings.TrimSpace(strings.ReplaceAll(ab.Snippet, "\n", " "))
		case len(ab.SnippetHighlighted) > 0:
			return strings.Join(ab.SnippetHighlighted, ", ")
		}
	}

	var snippets []string
	if kg := r.KnowledgeGraph; kg != nil {
		if kg.Title != "" && kg.Type != "" {
			snippets = append(snippets, fmt.Sprintf("%s: %s.", kg.Title, kg.Type))
		}
		if kg.Description != "" {
			snippets = append(snippets, kg.Description)
		}
		for _, attr := range sortedKeys(kg.Attributes) {
			snippets = append(snippets, fmt.Sprintf("%s %s: %s.", kg.Title, attr, kg.Attributes[attr]))
		}
	}
	for i, o := range r.Organic {
		if i >= k {
			break
		}
		if o.Snippet != "" {
			snippets = append(snippets, o.Snippet)
		}
		for _, attr := range sortedKeys(o.Attributes) {
			snippets = append(snippets, fmt.Sprintf("%s: %s.", attr, o.Attributes[attr]))
		}
	}
	return strings.TrimSpace(strings.Join(snippets, " "))
}
