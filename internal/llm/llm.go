// Package llm wraps chat-completion backends behind a single-prompt interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Defaults applied by NewOpenAIClient to unset Config fields.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.6
	DefaultTimeout     = 120 * time.Second
)

// ErrEmptyResponse is returned when the backend produced no choices.
var ErrEmptyResponse = errors.New("llm: empty response")

// LanguageModel turns a prompt into generated text.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures an OpenAI-compatible chat client. BaseURL may point at any
// server speaking the chat completions API (llama.cpp, vLLM, Ollama).
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	// Temperature nil means DefaultTemperature; zero selects greedy decoding.
	Temperature *float32
	Timeout     time.Duration
}

// OpenAIClient is a LanguageModel backed by go-openai.
type OpenAIClient struct {
	client      *openai.Client
	cfg         Config
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIClient builds a client, filling unset fields with defaults.
func NewOpenAIClient(cfg Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("llm: API key or base URL required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	temperature := float32(DefaultTemperature)
	if cfg.Temperature != nil {
		if *cfg.Temperature < 0 {
			return nil, fmt.Errorf("llm: negative temperature %v", *cfg.Temperature)
		}
		temperature = *cfg.Temperature
	}
	// go-openai omits a zero temperature, which the server reads as its own default.
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(oc), cfg: cfg, temperature: temperature, logger: logger}, nil
}

// Complete sends prompt as a single user message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	c.logger.Debug("chat completion done",
		zap.String("model", c.cfg.Model),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("took", time.Since(start)))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
