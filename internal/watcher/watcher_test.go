package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recorder) count(suffix string) int {
	n := 0
	for _, p := range r.snapshot() {
		if strings.HasSuffix(p, suffix) {
			n++
		}
	}
	return n
}

func txtOrMD(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".txt" || ext == ".md"
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func startWatcher(t *testing.T, roots []string, rec *recorder) *Watcher {
	t.Helper()
	w, err := New(roots, true, txtOrMD, rec.handle, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		w.Stop()
		cancel()
	})
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestNew_RequiresHandler(t *testing.T) {
	if _, err := New(nil, true, nil, nil); err == nil {
		t.Error("expected error for nil handler")
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, []string{dir}, rec)

	path := filepath.Join(dir, "news.txt")
	for i := 0; i < 5; i++ {
		writeFile(t, path, strings.Repeat("x", i+1))
	}
	writeFile(t, filepath.Join(dir, "ignored.xyz"), "skip")

	if !waitFor(t, func() bool { return rec.count("news.txt") >= 1 }) {
		t.Fatalf("expected news.txt to be handled, got %v", rec.snapshot())
	}
	time.Sleep(200 * time.Millisecond)
	if n := rec.count("news.txt"); n != 1 {
		t.Errorf("expected one debounced call, got %d", n)
	}
	if rec.count("ignored.xyz") != 0 {
		t.Error("ignored.xyz should not be handled")
	}
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, []string{dir}, rec)

	nested := filepath.Join(dir, "level1", "level2")
	writeFile(t, filepath.Join(nested, "deep.txt"), "deep content")
	writeFile(t, filepath.Join(dir, "level1", "doc.md"), "world")

	ok := waitFor(t, func() bool { return rec.count("deep.txt") >= 1 && rec.count("doc.md") >= 1 })
	if !ok {
		t.Errorf("expected files in new folders to be handled, got %v", rec.snapshot())
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "sub", "b.md"), "hello")
	writeFile(t, filepath.Join(dir, ".git", "c.txt"), "hidden")
	writeFile(t, filepath.Join(dir, "ignore.xyz"), "x")

	rec := &recorder{}
	w := startWatcher(t, []string{dir}, rec)
	w.SyncExistingFiles(context.Background())

	got := rec.snapshot()
	if len(got) != 2 || rec.count("a.txt") != 1 || rec.count("b.md") != 1 {
		t.Errorf("expected a.txt and b.md, got %v", got)
	}
}

func TestWatcher_AddDirectory(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(second, "existing.txt"), "already here")

	rec := &recorder{}
	w := startWatcher(t, []string{first}, rec)

	if err := w.AddDirectory(second, true); err != nil {
		t.Fatal(err)
	}
	if err := w.AddDirectory(second, false); err != nil {
		t.Fatal(err)
	}
	if dirs := w.Directories(); len(dirs) != 2 {
		t.Errorf("Directories() = %v", dirs)
	}
	if !waitFor(t, func() bool { return rec.count("existing.txt") == 1 }) {
		t.Errorf("expected existing file to be synced, got %v", rec.snapshot())
	}

	writeFile(t, filepath.Join(second, "later.txt"), "new")
	if !waitFor(t, func() bool { return rec.count("later.txt") >= 1 }) {
		t.Errorf("expected later.txt to be handled, got %v", rec.snapshot())
	}
}

func TestWatcher_StartCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, []string{root}, &recorder{})

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := startWatcher(t, []string{t.TempDir()}, &recorder{})
	w.Stop()
	w.Stop()
}
