// Package storage records which source files have been ingested into the index.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrSourceNotFound is returned by Get for a path that was never ingested.
var ErrSourceNotFound = errors.New("source not found")

// Source is one ingested file.
type Source struct {
	Path       string    `json:"path"`
	ModTime    time.Time `json:"mod_time"`
	Size       int64     `json:"size"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Unchanged reports whether a file with the given mtime and size matches s.
func (s *Source) Unchanged(modTime time.Time, size int64) bool {
	return s.Size == size && s.ModTime.Equal(modTime)
}

// Ledger persists ingestion records.
type Ledger interface {
	Get(ctx context.Context, path string) (*Source, error)
	Upsert(ctx context.Context, src *Source) error
	List(ctx context.Context, offset, limit int) ([]*Source, error)
	Count(ctx context.Context) (int64, error)
	TotalChunks(ctx context.Context) (int64, error)
	Close() error
}
