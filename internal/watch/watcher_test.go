package watch

import (
	"context"
	"os"
	"path/filepath"
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

func startWatcher(t *testing.T, dir string, h Handler) (stop func()) {
	t.Helper()
	w := New(dir, h, Options{Debounce: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	// Give watcher time to start.
	time.Sleep(100 * time.Millisecond)
	return func() {
		cancel()
		<-done
	}
}

func TestWatcherDetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	stop := startWatcher(t, dir, rec.handle)

	src := filepath.Join(dir, "grant.hgl")
	if err := os.WriteFile(src, []byte("SUBJ:Human:alice"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(400 * time.Millisecond)
	stop()

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 path, got %v", got)
	}
	if got[0] != src {
		t.Errorf("got %q, want %q", got[0], src)
	}
}

func TestWatcherDebouncesRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	stop := startWatcher(t, dir, rec.handle)

	src := filepath.Join(dir, "grant.hgl")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(src, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)
	stop()

	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("expected writes to collapse into 1 call, got %d", len(got))
	}
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	stop := startWatcher(t, dir, rec.handle)

	for _, name := range []string{"grant.json", "grant.json.tmp", ".grant.hgl", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(400 * time.Millisecond)
	stop()

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected no calls, got %v", got)
	}
}

func TestMatches(t *testing.T) {
	opts := Options{Extensions: []string{".hgl", ".coop"}}
	tests := []struct {
		path string
		want bool
	}{
		{"/a/b.hgl", true},
		{"/a/b.coop", true},
		{"/a/b.json", false},
		{"/a/.b.hgl", false},
		{"/a/b.hgl.swp", false},
	}
	for _, tt := range tests {
		if got := opts.Matches(tt.path); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if !(Options{}).Matches("x.hgl") {
		t.Error("default extension should be .hgl")
	}
}

func TestScanExisting(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.hgl"), []byte("x"), 0600)
	os.WriteFile(filepath.Join(dir, "b.hgl"), []byte("x"), 0600)
	os.WriteFile(filepath.Join(dir, "c.json"), []byte("x"), 0600)
	os.Mkdir(filepath.Join(dir, "sub.hgl"), 0700)

	rec := &recorder{}
	if err := ScanExisting(context.Background(), dir, rec.handle, Options{}); err != nil {
		t.Fatal(err)
	}
	if got := rec.snapshot(); len(got) != 2 {
		t.Fatalf("expected 2 files, got %v", got)
	}
}

func TestScanExistingMissingDir(t *testing.T) {
	rec := &recorder{}
	if err := ScanExisting(context.Background(), filepath.Join(t.TempDir(), "nope"), rec.handle, Options{}); err != nil {
		t.Fatalf("missing dir should not error, got %v", err)
	}
}

func TestPollerSeesNewAndModifiedFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	p := NewPoller(dir, rec.handle, time.Hour, Options{})
	ctx := context.Background()

	src := filepath.Join(dir, "a.hgl")
	os.WriteFile(src, []byte("x"), 0600)
	p.scan(ctx)
	p.scan(ctx)
	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("expected 1 call after two scans, got %d", len(got))
	}

	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(src, later, later); err != nil {
		t.Fatal(err)
	}
	p.scan(ctx)
	if got := rec.snapshot(); len(got) != 2 {
		t.Fatalf("expected rescan after mtime change, got %d", len(got))
	}
}

func TestWatcherFlushesPendingOnShutdown(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var got []string
	var ctxErrs []error
	h := func(ctx context.Context, path string) {
		mu.Lock()
		got = append(got, path)
		ctxErrs = append(ctxErrs, ctx.Err())
		mu.Unlock()
	}

	// Debounce far longer than the test so only the shutdown flush can
	// deliver the path.
	w := New(dir, h, Options{Debounce: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	src := filepath.Join(dir, "late.hgl")
	if err := os.WriteFile(src, []byte("SUBJ:Human:alice"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != src {
		t.Fatalf("expected %s flushed on shutdown, got %v", src, got)
	}
	if ctxErrs[0] != nil {
		t.Errorf("flushed path handled with cancelled context: %v", ctxErrs[0])
	}
}
