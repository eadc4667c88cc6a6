// Package watch recompiles sentence files as they change on disk.
package watch

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	debounceDefault = 200 * time.Millisecond
	pollDefault     = 5 * time.Second
	workersDefault  = 4
	// maxQueueSize bounds the work queue between the debounce flush and
	// the worker pool.
	maxQueueSize = 200
)

// Handler processes one changed file.
type Handler func(ctx context.Context, path string)

// Options tunes a Watcher or Poller.
type Options struct {
	// Extensions selects files by suffix. Empty means ".hgl".
	Extensions []string
	Debounce   time.Duration
	Workers    int
	Logger     *log.Logger
}

func (o Options) withDefaults() Options {
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".hgl"}
	}
	if o.Debounce <= 0 {
		o.Debounce = debounceDefault
	}
	if o.Workers <= 0 {
		o.Workers = workersDefault
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	return o
}

// Matches reports whether path is a sentence source file.
func (o Options) Matches(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	for _, ext := range o.withDefaults().Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Watcher watches a directory with fsnotify and hands debounced paths to a
// fixed worker pool.
type Watcher struct {
	dir     string
	handler Handler
	opts    Options
}

// New creates a watcher for dir.
func New(dir string, handler Handler, opts Options) *Watcher {
	return &Watcher{dir: dir, handler: handler, opts: opts.withDefaults()}
}

// Run watches until ctx is cancelled. Paths still pending at shutdown are
// flushed before Run returns; handlers run on a context that is not
// cancelled with ctx so that flushed paths complete.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	// A single timer resets on each event; when it fires every pending path
	// goes to the queue. No per-file goroutines.
	var mu sync.Mutex
	pending := make(map[string]bool)
	queue := make(chan string, maxQueueSize)

	workCtx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for i := 0; i < w.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range queue {
				w.handle(workCtx, path)
			}
		}()
	}

	// flush queues every pending path. A nil stop blocks until the workers
	// take each one.
	flush := func(stop <-chan struct{}) {
		mu.Lock()
		batch := make([]string, 0, len(pending))
		for p := range pending {
			batch = append(batch, p)
		}
		pending = make(map[string]bool)
		mu.Unlock()

		for _, p := range batch {
			select {
			case queue <- p:
			case <-stop:
				return
			}
		}
	}

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()

	defer func() {
		timer.Stop()
		flush(nil)
		close(queue)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			flush(ctx.Done())

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.opts.Matches(event.Name) {
				continue
			}

			mu.Lock()
			pending[event.Name] = true
			mu.Unlock()

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Printf("watch: %v", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	defer func() {
		if r := recover(); r != nil {
			w.opts.Logger.Printf("watch: handler panic on %s: %v", path, r)
		}
	}()
	w.handler(ctx, path)
}

// Poller rescans a directory on an interval. Used where fsnotify is
// unavailable (network filesystems).
type Poller struct {
	dir      string
	handler  Handler
	opts     Options
	interval time.Duration
	seen     map[string]time.Time
}

// NewPoller creates a polling watcher. Zero interval means 5s.
func NewPoller(dir string, handler Handler, interval time.Duration, opts Options) *Poller {
	if interval <= 0 {
		interval = pollDefault
	}
	return &Poller{
		dir:      dir,
		handler:  handler,
		opts:     opts.withDefaults(),
		interval: interval,
		seen:     make(map[string]time.Time),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.scan(ctx)
		}
	}
}

// scan hands over files that are new or whose mtime changed.
func (p *Poller) scan(ctx context.Context) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		p.opts.Logger.Printf("watch: %v", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(p.dir, e.Name())
		if !p.opts.Matches(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mt, ok := p.seen[path]; ok && mt.Equal(info.ModTime()) {
			continue
		}
		p.seen[path] = info.ModTime()
		p.handler(ctx, path)
	}
}

// ScanExisting hands every matching file already in dir to handler.
// Called at startup so files written while nothing was watching are
// compiled too.
func ScanExisting(ctx context.Context, dir string, handler Handler, opts Options) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if opts.Matches(path) {
			handler(ctx, path)
		}
	}
	return nil
}
