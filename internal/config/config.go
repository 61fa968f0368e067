// Package config provides configuration loading and structs for the kotae server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application. Secrets are never read from the
// file; see LoadSecrets.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	RAG       RAGConfig       `yaml:"rag"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the persisted index and the source ledger. The document
// list is stored next to IndexPath with a .docs extension.
type StorageConfig struct {
	IndexPath  string `yaml:"index_path"`
	LedgerPath string `yaml:"ledger_path"`
}

// VectorConfig selects the nearest-neighbour engine ("memory" or "faiss").
type VectorConfig struct {
	IndexType string `yaml:"index_type"`
}

// EmbeddingConfig holds embedder settings. Provider is "onnx", "openai" or "mock".
// OutputName and Pooling apply to ONNX models only; Pooling is "mean" for
// sentence-transformers exports and "none" when the model already pools.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	OutputName string `yaml:"output_name"`
	Pooling    string `yaml:"pooling"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// LLMConfig holds chat completion settings. BaseURL may point at any OpenAI-compatible
// endpoint.
type LLMConfig struct {
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float32      `yaml:"temperature"` // nil = 0.6; 0 = greedy
	Timeout     time.Duration `yaml:"timeout"`
}

// WebSearchConfig holds Serper settings.
type WebSearchConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Country  string        `yaml:"gl"`
	Language string        `yaml:"hl"`
	Num      int           `yaml:"num"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EnabledOrDefault returns whether web search is enabled; defaults to true when unset.
func (w *WebSearchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// RAGConfig holds retrieval settings.
type RAGConfig struct {
	TopK             int `yaml:"top_k"`
	MaxContextLength int `yaml:"max_context_length"`
}

// IngestConfig holds chunking and source directory settings.
type IngestConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Extensions   []string `yaml:"extensions"`
	Directories  []string `yaml:"directories"`
	Recursive    *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to walk directories recursively; defaults to true.
func (i *IngestConfig) RecursiveOrDefault() bool {
	if i.Recursive != nil {
		return *i.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, expands paths, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.ExpandPaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ExpandPaths resolves every path setting against configDir.
func (c *Config) ExpandPaths(configDir string) {
	c.Storage.IndexPath = expandPath(c.Storage.IndexPath, configDir)
	c.Storage.LedgerPath = expandPath(c.Storage.LedgerPath, configDir)
	c.Embedding.ModelPath = expandPath(c.Embedding.ModelPath, configDir)
	for i := range c.Ingest.Directories {
		c.Ingest.Directories[i] = expandPath(c.Ingest.Directories[i], configDir)
	}
}

// Validate reports settings that would make components fail at construction.
func (c *Config) Validate() error {
	switch {
	case c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize:
		return fmt.Errorf("invalid config: ingest.chunk_overlap %d must be in [0, chunk_size %d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	case c.RAG.TopK <= 0:
		return fmt.Errorf("invalid config: rag.top_k must be positive, got %d", c.RAG.TopK)
	case c.LLM.Temperature != nil && *c.LLM.Temperature < 0:
		return fmt.Errorf("invalid config: llm.temperature must not be negative, got %v", *c.LLM.Temperature)
	case c.Embedding.Dimensions <= 0:
		return fmt.Errorf("invalid config: embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		path = path[2:]
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
