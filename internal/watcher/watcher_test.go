package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func collectDrops() (func(string), func() []string) {
	var mu sync.Mutex
	var dropped []string
	record := func(path string) {
		mu.Lock()
		dropped = append(dropped, path)
		mu.Unlock()
	}
	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), dropped...)
	}
	return record, snapshot
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcherDropTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	record, snapshot := collectDrops()

	w := New([]string{dir}, []string{".txt"}, true, record, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "dropped.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 3*time.Second, func() bool { return len(snapshot()) == 1 }) {
		t.Fatalf("expected 1 drop, got %v", snapshot())
	}
	if got := snapshot()[0]; filepath.Clean(got) != filepath.Clean(path) {
		t.Errorf("dropped path = %q, want %q", got, path)
	}
}

func TestWatcherExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	record, snapshot := collectDrops()

	w := New([]string{dir}, []string{"txt", ".pdf"}, false, record, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "skip.log"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "take.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 3*time.Second, func() bool { return len(snapshot()) >= 1 }) {
		t.Fatalf("expected a drop, got none")
	}
	time.Sleep(200 * time.Millisecond)
	for _, p := range snapshot() {
		if filepath.Ext(p) == ".log" {
			t.Errorf("unexpected drop for filtered extension: %q", p)
		}
	}
}

func TestWatcherDebounceCollapsesWrites(t *testing.T) {
	dir := t.TempDir()
	record, snapshot := collectDrops()

	w := New([]string{dir}, nil, false, record, WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "big.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := f.WriteString("chunk of data\n"); err != nil {
			t.Fatal(err)
		}
		_ = f.Sync()
		time.Sleep(30 * time.Millisecond)
	}
	f.Close()

	if !waitFor(t, 3*time.Second, func() bool { return len(snapshot()) >= 1 }) {
		t.Fatalf("expected a drop after writes settled")
	}
	time.Sleep(300 * time.Millisecond)
	if got := len(snapshot()); got != 1 {
		t.Errorf("expected writes to collapse into 1 drop, got %d", got)
	}
}

func TestWatcherCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox")
	record, _ := collectDrops()

	w := New([]string{root}, nil, true, record)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(root); err != nil {
		t.Errorf("expected root to be created: %v", err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 {
		t.Errorf("Directories() = %v", dirs)
	}
}

func TestWatcherSyncExisting(t *testing.T) {
	dir := t.TempDir()
	pre := filepath.Join(dir, "already-there.txt")
	if err := os.WriteFile(pre, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	record, snapshot := collectDrops()
	w := New([]string{dir}, []string{".txt"}, true, record, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExisting()
	if !waitFor(t, 3*time.Second, func() bool { return len(snapshot()) == 1 }) {
		t.Fatalf("expected existing file to be scheduled, got %v", snapshot())
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	w := New([]string{t.TempDir()}, nil, false, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
