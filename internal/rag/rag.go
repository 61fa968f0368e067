// Package rag answers questions from a local vector index and optional web search,
// grounding a language model in the retrieved context.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/websearch"
	"go.uber.org/zap"
)

// Defaults for an Answerer built without the matching option.
const (
	DefaultTopK             = 5
	DefaultMaxContextLength = 15000
	DefaultWebTimeout       = 15 * time.Second
	DefaultGenerateTimeout  = 120 * time.Second
)

// Answer is the result of one Ask call. Text is always a well-formed answer: a grounded
// response, RefusalSentence, or a description of a generation failure.
type Answer struct {
	Text      string       `json:"answer"`
	Refused   bool         `json:"refused"`
	Outcome   Outcome      `json:"outcome"`
	Sections  []Section    `json:"sections,omitempty"`
	Generated bool         `json:"generated"`
	Web       WebOutcome   `json:"web"`
	Local     LocalOutcome `json:"local"`
}

// Answerer runs the retrieval pipeline. It holds no per-call state and is safe for
// concurrent use as long as its collaborators are.
type Answerer struct {
	store           Store
	embedder        QueryEmbedder
	model           LanguageModel
	web             WebSearch
	topK            int
	maxContext      int
	webTimeout      time.Duration
	generateTimeout time.Duration
	logger          *zap.Logger
}

// Option configures an Answerer.
type Option func(*Answerer)

// WithWebSearch enables the web retrieval stage.
func WithWebSearch(p WebSearch) Option {
	return func(a *Answerer) { a.web = p }
}

// WithTopK sets how many local documents are retrieved.
func WithTopK(k int) Option {
	return func(a *Answerer) { a.topK = k }
}

// WithMaxContextLength caps the assembled context, in characters.
func WithMaxContextLength(n int) Option {
	return func(a *Answerer) { a.maxContext = n }
}

// WithWebTimeout bounds each web search call. Non-positive values keep the default.
func WithWebTimeout(d time.Duration) Option {
	return func(a *Answerer) {
		if d > 0 {
			a.webTimeout = d
		}
	}
}

// WithGenerateTimeout bounds each language model call. Non-positive values keep the default.
func WithGenerateTimeout(d time.Duration) Option {
	return func(a *Answerer) {
		if d > 0 {
			a.generateTimeout = d
		}
	}
}

// WithLogger sets a logger for degraded stages.
func WithLogger(l *zap.Logger) Option {
	return func(a *Answerer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnswerer wires the pipeline. A nil store yields ErrInvalidIndex; a nil embedder or
// model, or a non-positive limit, yields a *ConfigError.
func NewAnswerer(store Store, embedder QueryEmbedder, model LanguageModel, opts ...Option) (*Answerer, error) {
	if store == nil {
		return nil, ErrInvalidIndex
	}
	if embedder == nil {
		return nil, &ConfigError{Field: "embedder"}
	}
	if model == nil {
		return nil, &ConfigError{Field: "language model"}
	}
	a := &Answerer{
		store:           store,
		embedder:        embedder,
		model:           model,
		topK:            DefaultTopK,
		maxContext:      DefaultMaxContextLength,
		webTimeout:      DefaultWebTimeout,
		generateTimeout: DefaultGenerateTimeout,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.topK <= 0 {
		return nil, &ConfigError{Field: "top_k", Err: fmt.Errorf("must be positive, got %d", a.topK)}
	}
	if a.maxContext <= 0 {
		return nil, &ConfigError{Field: "max_context_length", Err: fmt.Errorf("must be positive, got %d", a.maxContext)}
	}
	return a, nil
}

// WebEnabled reports whether a web search provider is configured.
func (a *Answerer) WebEnabled() bool { return a.web != nil }

// TopK returns the configured number of local documents.
func (a *Answerer) TopK() int { return a.topK }

// Ask answers query with the configured top_k.
func (a *Answerer) Ask(ctx context.Context, query string) Answer {
	return a.AskWithTopK(ctx, query, a.topK)
}

// AskWithTopK answers query retrieving k local documents; k <= 0 means the default.
func (a *Answerer) AskWithTopK(ctx context.Context, query string, k int) Answer {
	if k <= 0 {
		k = a.topK
	}
	start := time.Now()
	ans := Answer{
		Web:   a.searchWeb(ctx, query),
		Local: a.searchLocal(ctx, query, k),
	}
	ans.Sections = buildSections(ans.Web, ans.Local)

	finalContext := AssembleContext(ans.Sections, a.maxContext)
	if strings.TrimSpace(finalContext) == "" {
		a.logger.Info("no context found, refusing",
			zap.String("web", string(ans.Web.Absent)),
			zap.String("local", string(ans.Local.Absent)))
		ans.Text = RefusalSentence
		ans.Refused = true
		ans.Outcome = OutcomeRefusedEarly
		return ans
	}

	text, err := a.generate(ctx, BuildPrompt(finalContext, query))
	if err != nil {
		a.logger.Error("language model failed", zap.Error(err))
		ans.Text = fmt.Sprintf("Произошла ошибка при обращении к языковой модели: %v", err)
		ans.Outcome = OutcomeGenerationFailed
		return ans
	}

	ans.Text = CleanResponse(text)
	ans.Refused = IsRefusal(ans.Text)
	ans.Generated = true
	ans.Outcome = OutcomeAnswered
	a.logger.Debug("answer generated",
		zap.Int("sections", len(ans.Sections)),
		zap.Int("context_len", len(finalContext)),
		zap.Bool("refused", ans.Refused),
		zap.Duration("took", time.Since(start)))
	return ans
}

func (a *Answerer) searchWeb(ctx context.Context, query string) WebOutcome {
	if a.web == nil {
		return WebOutcome{Absent: AbsenceDisabled}
	}
	ctx, cancel := context.WithTimeout(ctx, a.webTimeout)
	defer cancel()

	summary, err := a.web.Search(ctx, query)
	switch {
	case errors.Is(err, websearch.ErrNoResults):
		return WebOutcome{Absent: AbsenceEmpty}
	case err != nil:
		a.logger.Warn("web search failed", zap.Error(err))
		return WebOutcome{Absent: AbsenceFailed, Err: err}
	case strings.TrimSpace(summary) == "":
		return WebOutcome{Absent: AbsenceEmpty}
	}
	return WebOutcome{Summary: summary}
}

func (a *Answerer) searchLocal(ctx context.Context, query string, k int) LocalOutcome {
	vec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		a.logger.Warn("query embedding failed", zap.Error(err))
		return LocalOutcome{Absent: AbsenceFailed, Err: err}
	}
	found, err := a.store.Nearest(ctx, vec, k)
	if err != nil {
		a.logger.Warn("local search failed", zap.Error(err))
		return LocalOutcome{Absent: AbsenceFailed, Err: err}
	}
	if len(found) == 0 {
		return LocalOutcome{Absent: AbsenceEmpty}
	}

	var out LocalOutcome
	count := a.store.DocumentCount()
	for _, n := range found {
		if n.Position < 0 || n.Position >= count {
			out.Dropped++
			continue
		}
		doc, ok := a.store.Document(n.Position)
		if !ok {
			out.Dropped++
			continue
		}
		out.Documents = append(out.Documents, doc)
		out.Distances = append(out.Distances, n.Distance)
	}
	if out.Dropped > 0 {
		a.logger.Warn("retrieved positions without documents",
			zap.Int("dropped", out.Dropped),
			zap.Int("documents", count))
	}
	if len(out.Documents) == 0 {
		out.Absent = AbsenceOutOfRange
	}
	return out
}

func (a *Answerer) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.generateTimeout)
	defer cancel()
	return a.model.Complete(ctx, prompt)
}
