package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/websearch"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Config   *config.Config
	Embedder embedding.Embedder
	Index    *vector.Index
	Ledger   *storage.SQLiteLedger
	Ingester *ingest.Ingester
	Answerer *rag.Answerer
	logger   *zap.Logger
}

// Close releases the ledger, embedder and engine. It does not save the index.
func (c *Components) Close() {
	if c.Ledger != nil {
		_ = c.Ledger.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

// SaveIndex persists the index to the configured path and then records the files
// ingested so far in the ledger.
func (c *Components) SaveIndex() error {
	save := func() error { return c.Index.Save(c.Config.Storage.IndexPath) }
	if err := c.Ingester.Checkpoint(context.Background(), save); err != nil {
		return err
	}
	c.logger.Info("index saved",
		zap.String("path", c.Config.Storage.IndexPath),
		zap.Int("documents", c.Index.DocumentCount()))
	return nil
}

// Status collects index and ledger counts for the status command.
func (c *Components) Status(ctx context.Context) (*models.StatusResponse, error) {
	sources, err := c.Ledger.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sources: %w", err)
	}
	chunks, err := c.Ledger.TotalChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	cfg := c.Config
	status := &models.StatusResponse{
		Documents:    c.Index.DocumentCount(),
		Vectors:      c.Index.Size(),
		IndexType:    c.Index.Type(),
		Dimensions:   c.Index.Dimensions(),
		Sources:      sources,
		SourceChunks: chunks,
		WebSearch:    c.Answerer.WebEnabled(),
		Config: map[string]any{
			"embedding_provider": cfg.Embedding.Provider,
			"llm_model":          cfg.LLM.Model,
			"top_k":              cfg.RAG.TopK,
			"max_context_length": cfg.RAG.MaxContextLength,
			"chunk_size":         cfg.Ingest.ChunkSize,
			"chunk_overlap":      cfg.Ingest.ChunkOverlap,
			"index_path":         cfg.Storage.IndexPath,
			"ledger_path":        cfg.Storage.LedgerPath,
		},
	}
	if n, err := storage.DiskUsageBytes(cfg.Storage.IndexPath, vector.DocumentsPath(cfg.Storage.IndexPath), cfg.Storage.LedgerPath); err == nil {
		status.DiskUsageBytes = n
	}
	return status, nil
}

// unavailableModel stands in for a language model that could not be configured, so
// that commands not generating answers still work. Every Complete call fails.
type unavailableModel struct{ err error }

func (m unavailableModel) Complete(context.Context, string) (string, error) { return "", m.err }

func initializeComponents(cfg *config.Config, secrets config.Secrets, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		Dimensions: cfg.Embedding.Dimensions,
		ONNX: embedding.ONNXConfig{
			ModelPath:   cfg.Embedding.ModelPath,
			Dimensions:  cfg.Embedding.Dimensions,
			MaxTokens:   cfg.Embedding.MaxTokens,
			CacheSize:   cfg.Embedding.CacheSize,
			OutputName:  cfg.Embedding.OutputName,
			MeanPooling: cfg.Embedding.Pooling == "mean",
		},
		OpenAI: embedding.OpenAIConfig{
			APIKey:     secrets.EmbeddingAPIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			CacheSize:  cfg.Embedding.CacheSize,
		},
	})
	if err != nil {
		if cfg.Embedding.Provider == embedding.ProviderMock {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		logger.Warn("embedder unavailable, falling back to mock embeddings",
			zap.String("provider", cfg.Embedding.Provider),
			zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	engine, err := vector.NewEngine(cfg.Vector.IndexType, embedder.Dimensions())
	if err != nil {
		if cfg.Vector.IndexType == string(vector.IndexTypeMemory) || cfg.Vector.IndexType == "" {
			_ = embedder.Close()
			return nil, fmt.Errorf("failed to initialize vector engine: %w", err)
		}
		logger.Warn("failed to create vector engine, falling back to memory",
			zap.String("requested_type", cfg.Vector.IndexType),
			zap.Error(err))
		if engine, err = vector.NewEngine(string(vector.IndexTypeMemory), embedder.Dimensions()); err != nil {
			_ = embedder.Close()
			return nil, fmt.Errorf("failed to initialize vector engine: %w", err)
		}
	}
	index, err := vector.NewIndex(engine, embedder, vector.WithLogger(logger))
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize index: %w", err)
	}
	c := &Components{Config: cfg, Embedder: embedder, Index: index, logger: logger}

	switch err := index.Load(cfg.Storage.IndexPath); {
	case errors.Is(err, vector.ErrIndexNotFound):
		logger.Info("no saved index, starting empty", zap.String("path", cfg.Storage.IndexPath))
	case err != nil:
		c.Close()
		return nil, fmt.Errorf("failed to load index: %w", err)
	default:
		logger.Info("index loaded",
			zap.String("path", cfg.Storage.IndexPath),
			zap.Int("documents", index.DocumentCount()))
	}

	c.Ledger, err = storage.NewSQLiteLedger(cfg.Storage.LedgerPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	chunker, err := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Ingester, err = ingest.NewIngester(index, chunker, extract.NewExtractor(),
		ingest.WithLedger(c.Ledger),
		ingest.WithExtensions(cfg.Ingest.Extensions),
		ingest.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, err
	}

	var model rag.LanguageModel
	client, err := llm.NewOpenAIClient(llm.Config{
		APIKey:      secrets.LLMAPIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		logger.Warn("language model not configured; answers will report the error", zap.Error(err))
		model = unavailableModel{err: err}
	} else {
		model = client
	}

	opts := []rag.Option{
		rag.WithTopK(cfg.RAG.TopK),
		rag.WithMaxContextLength(cfg.RAG.MaxContextLength),
		rag.WithGenerateTimeout(cfg.LLM.Timeout),
		rag.WithWebTimeout(cfg.WebSearch.Timeout),
		rag.WithLogger(logger),
	}
	if cfg.WebSearch.EnabledOrDefault() {
		serper, err := websearch.NewSerperClient(websearch.SerperConfig{
			APIKey:   secrets.SerperAPIKey,
			Country:  cfg.WebSearch.Country,
			Language: cfg.WebSearch.Language,
			Num:      cfg.WebSearch.Num,
			Timeout:  cfg.WebSearch.Timeout,
		}, websearch.WithLogger(logger))
		if err != nil {
			logger.Warn("web search disabled", zap.Error(err))
		} else {
			opts = append(opts, rag.WithWebSearch(serper))
		}
	}
	c.Answerer, err = rag.NewAnswerer(index, embedder, model, opts...)
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
