// Package ingest cleans, chunks and adds source documents to the vector index, keeping
// a ledger of which files were already ingested.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// Index receives chunks. *vector.Index satisfies it.
type Index interface {
	Add(ctx context.Context, docs []string) (int, error)
}

// FileResult describes one IngestFile call.
type FileResult struct {
	Path    string `json:"path"`
	Chunks  int    `json:"chunks"`
	Skipped bool   `json:"skipped"`
}

// Summary aggregates a directory run.
type Summary struct {
	Files   int `json:"files"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Chunks  int `json:"chunks"`
}

// Ingester feeds files and raw text into an Index. Ledger rows for ingested files are
// held as pending until Checkpoint persists the index, so the ledger never records a file
// whose chunks are missing from the saved index.
type Ingester struct {
	index      Index
	chunker    *Chunker
	extractor  *extract.Extractor
	ledger     storage.Ledger
	extensions []string
	logger     *zap.Logger

	mu      sync.Mutex
	pending map[string]*storage.Source
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets a logger for per-file debug output and skipped-file warnings.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithLedger enables skipping of files whose mtime and size are unchanged.
func WithLedger(l storage.Ledger) Option {
	return func(in *Ingester) { in.ledger = l }
}

// WithExtensions restricts directory ingestion to the given extensions.
func WithExtensions(exts []string) Option {
	return func(in *Ingester) {
		if len(exts) > 0 {
			in.extensions = exts
		}
	}
}

// NewIngester creates an ingester. extractor may be nil, in which case a default one is used.
func NewIngester(index Index, chunker *Chunker, extractor *extract.Extractor, opts ...Option) (*Ingester, error) {
	if index == nil {
		return nil, errors.New("ingest: index must not be nil")
	}
	if chunker == nil {
		return nil, errors.New("ingest: chunker must not be nil")
	}
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	in := &Ingester{
		index:      index,
		chunker:    chunker,
		extractor:  extractor,
		extensions: extract.DefaultExtensions,
		logger:     zap.NewNop(),
		pending:    make(map[string]*storage.Source),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in, nil
}

// IngestText cleans and chunks text and adds the chunks. Blank text yields
// vector.ErrEmptyInput.
func (in *Ingester) IngestText(ctx context.Context, text string) (int, error) {
	return in.IngestTexts(ctx, []string{text})
}

// IngestTexts chunks every text and adds all chunks in a single Index.Add call, so either
// every chunk is added or none is. Blank texts are skipped; vector.ErrEmptyInput is
// returned when nothing is left.
func (in *Ingester) IngestTexts(ctx context.Context, texts []string) (int, error) {
	var chunks []string
	for _, text := range texts {
		chunks = append(chunks, in.chunker.Chunk(Clean(text))...)
	}
	if len(chunks) == 0 {
		return 0, vector.ErrEmptyInput
	}
	return in.index.Add(ctx, chunks)
}

// IngestFile extracts, chunks and adds one file. With a ledger, a file whose mtime and
// size match the last ingestion is skipped. A changed file is added again as new chunks;
// earlier chunks stay in the index.
func (in *Ingester) IngestFile(ctx context.Context, path string) (FileResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("absolute path: %w", err)
	}
	res := FileResult{Path: absPath}
	info, err := os.Stat(absPath)
	if err != nil {
		return res, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return res, fmt.Errorf("not a regular file: %s", absPath)
	}

	if in.ledger != nil {
		// A pending row is newer than anything in the ledger.
		in.mu.Lock()
		src, ok := in.pending[absPath]
		in.mu.Unlock()
		var err error
		if !ok {
			src, err = in.ledger.Get(ctx, absPath)
		}
		switch {
		case err == nil && src.Unchanged(info.ModTime(), info.Size()):
			in.logger.Debug("skipping unchanged file", zap.String("path", absPath))
			res.Skipped = true
			return res, nil
		case err != nil && !errors.Is(err, storage.ErrSourceNotFound):
			return res, fmt.Errorf("ledger lookup: %w", err)
		}
	}

	text, err := in.extractor.Extract(absPath)
	if err != nil {
		return res, fmt.Errorf("extract content: %w", err)
	}
	n, err := in.IngestText(ctx, text)
	if err != nil {
		return res, fmt.Errorf("ingest %s: %w", filepath.Base(absPath), err)
	}
	res.Chunks = n

	if in.ledger != nil {
		in.mu.Lock()
		in.pending[absPath] = &storage.Source{Path: absPath, ModTime: info.ModTime(), Size: info.Size(), Chunks: n}
		in.mu.Unlock()
	}
	in.logger.Debug("file ingested", zap.String("path", absPath), zap.Int("chunks", n))
	return res, nil
}

// Pending returns the number of ingested files not yet recorded in the ledger.
func (in *Ingester) Pending() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.pending)
}

// Checkpoint runs save, which must persist the index, and then records in the ledger
// every file ingested before the call. Files ingested while save runs stay pending for
// the next checkpoint. When save fails nothing is recorded.
func (in *Ingester) Checkpoint(ctx context.Context, save func() error) error {
	in.mu.Lock()
	batch := in.pending
	in.pending = make(map[string]*storage.Source)
	in.mu.Unlock()

	if err := save(); err != nil {
		in.requeue(batch)
		return err
	}
	if in.ledger == nil {
		return nil
	}
	for path, src := range batch {
		if err := in.ledger.Upsert(ctx, src); err != nil {
			in.requeue(batch)
			return fmt.Errorf("ledger update %s: %w", path, err)
		}
	}
	if len(batch) > 0 {
		in.logger.Debug("ledger updated", zap.Int("files", len(batch)))
	}
	return nil
}

// requeue returns batch rows to pending unless a newer row for the same path arrived.
func (in *Ingester) requeue(batch map[string]*storage.Source) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for path, src := range batch {
		if _, ok := in.pending[path]; !ok {
			in.pending[path] = src
		}
	}
}

// IngestDirectory ingests every regular file under root whose extension is allowed.
// Subdirectories are walked only when recursive is set. Per-file failures are logged
// and counted; only walk errors and context cancellation abort the run.
func (in *Ingester) IngestDirectory(ctx context.Context, root string, recursive bool) (Summary, error) {
	var sum Summary
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return sum, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return sum, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return sum, fmt.Errorf("not a directory: %s", absRoot)
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absRoot && (!recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !in.Accepts(path) {
			return nil
		}
		res, err := in.IngestFile(ctx, path)
		switch {
		case err != nil:
			sum.Failed++
			in.logger.Warn("failed to ingest file", zap.String("path", path), zap.Error(err))
		case res.Skipped:
			sum.Skipped++
		default:
			sum.Files++
			sum.Chunks += res.Chunks
		}
		return nil
	})
	in.logger.Info("directory ingested",
		zap.String("root", absRoot),
		zap.Int("files", sum.Files),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Int("chunks", sum.Chunks))
	return sum, err
}

// Accepts reports whether path has an allowed, extractable extension.
func (in *Ingester) Accepts(path string) bool {
	ext := filepath.Ext(path)
	return extensionAllowed(ext, in.extensions) && in.extractor.Supports(ext)
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
