package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteLedger implements Ledger using SQLite.
type SQLiteLedger struct {
	db *sql.DB
}

var _ Ledger = (*SQLiteLedger)(nil)

// NewSQLiteLedger opens or creates the ledger database at dbPath. Parent directories
// are created if they do not exist.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		path TEXT PRIMARY KEY,
		mtime INTEGER NOT NULL,
		size INTEGER NOT NULL,
		chunks INTEGER NOT NULL DEFAULT 0,
		ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sources_ingested_at ON sources(ingested_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the record for path, or ErrSourceNotFound.
func (l *SQLiteLedger) Get(ctx context.Context, path string) (*Source, error) {
	var src Source
	var mtime int64
	err := l.db.QueryRowContext(ctx,
		`SELECT path, mtime, size, chunks, ingested_at FROM sources WHERE path = ?`, path,
	).Scan(&src.Path, &mtime, &src.Size, &src.Chunks, &src.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	src.ModTime = time.Unix(0, mtime)
	return &src, nil
}

// Upsert inserts or replaces the record for src.Path. IngestedAt is set to now when zero.
func (l *SQLiteLedger) Upsert(ctx context.Context, src *Source) error {
	if src.IngestedAt.IsZero() {
		src.IngestedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO sources (path, mtime, size, chunks, ingested_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   mtime = excluded.mtime,
		   size = excluded.size,
		   chunks = excluded.chunks,
		   ingested_at = excluded.ingested_at`,
		src.Path, src.ModTime.UnixNano(), src.Size, src.Chunks, src.IngestedAt,
	)
	return err
}

// List returns records, most recently ingested first.
func (l *SQLiteLedger) List(ctx context.Context, offset, limit int) ([]*Source, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT path, mtime, size, chunks, ingested_at
		 FROM sources ORDER BY ingested_at DESC, path LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Source
	for rows.Next() {
		var src Source
		var mtime int64
		if err := rows.Scan(&src.Path, &mtime, &src.Size, &src.Chunks, &src.IngestedAt); err != nil {
			return nil, err
		}
		src.ModTime = time.Unix(0, mtime)
		out = append(out, &src)
	}
	return out, rows.Err()
}

// Count returns the number of recorded sources.
func (l *SQLiteLedger) Count(ctx context.Context) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&n)
	return n, err
}

// TotalChunks returns the sum of chunks over all sources.
func (l *SQLiteLedger) TotalChunks(ctx context.Context) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(chunks), 0) FROM sources`).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
