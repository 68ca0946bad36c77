package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period a file must observe before a reload
// is triggered, preventing reload storms from editors and atomic writes.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads registered file maps when their backing files change.
// Events are debounced per file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	files   map[string]*File
	dirs    map[string]bool
	pending map[string]*time.Timer
	closed  bool
}

// NewWatcher creates a watcher. A non-positive debounce falls back to
// DefaultDebounce.
func NewWatcher(debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsw,
		logger:   logger,
		debounce: debounce,
		files:    make(map[string]*File),
		dirs:     make(map[string]bool),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Add registers a file map for reload on change. The file's directory is
// watched rather than the file itself so that atomic replace-by-rename is
// observed.
func (w *Watcher) Add(f *File) error {
	path, err := filepath.Abs(f.Path())
	if err != nil {
		return fmt.Errorf("resolve map path %q: %w", f.Path(), err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(path)
	if !w.dirs[dir] {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory %q: %w", dir, err)
		}
		w.dirs[dir] = true
	}

	w.files[path] = f
	w.logger.Debug("watching map file", "path", path)
	return nil
}

// Run processes file events until ctx is cancelled or the watcher is
// closed. It is the caller's goroutine to run.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.handle(filepath.Clean(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("map watcher error", "error", err)
		}
	}
}

// handle schedules a debounced reload for path if it belongs to a
// registered map.
func (w *Watcher) handle(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f := w.files[path]
	if f == nil || w.closed {
		return
	}

	if timer := w.pending[path]; timer != nil {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		if err := f.Reload(); err != nil {
			w.logger.Error("map reload failed, keeping previous contents",
				"path", path,
				"error", err,
			)
			return
		}
		w.logger.Info("map reloaded",
			"path", path,
			"entries", f.Len(),
		)
	})
}

// Close stops the watcher and cancels pending reloads.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = make(map[string]*time.Timer)
	w.mu.Unlock()

	return w.watcher.Close()
}
