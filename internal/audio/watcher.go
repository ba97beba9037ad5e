package audio

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// invalidator drops cached decodes for a path.
type invalidator interface {
	InvalidateCache(path string)
}

// Watcher watches track files and evicts them from the decode cache when
// they change on disk, so the next load picks up the new audio.
type Watcher struct {
	mu     sync.RWMutex
	logger *slog.Logger
	cache  invalidator

	watcher *fsnotify.Watcher

	// Watched track paths, and how many of them live in each directory
	paths map[string]bool
	dirs  map[string]int

	onChange func(path string)

	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a new track watcher that invalidates cache entries.
func NewWatcher(cache invalidator, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		logger: logger,
		cache:  cache,
		paths:  make(map[string]bool),
		dirs:   make(map[string]int),
	}
}

// SetChangeCallback sets a callback invoked after a watched track changed.
func (w *Watcher) SetChangeCallback(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Watch adds a track path to the watch list.
func (w *Watcher) Watch(path string) {
	if path == "" {
		return
	}
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.paths[path] {
		return
	}
	w.paths[path] = true

	dir := filepath.Dir(path)
	w.dirs[dir]++
	if w.dirs[dir] == 1 && w.watcher != nil {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Debug("failed to watch track directory", "dir", dir, "error", err)
		}
	}
}

// Unwatch removes a path from the watch list.
func (w *Watcher) Unwatch(path string) {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.paths[path] {
		return
	}
	delete(w.paths, path)

	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if w.watcher != nil {
			_ = w.watcher.Remove(dir)
		}
	}
}

// Start begins watching track files for changes.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch directories rather than files; editors replace files on save
	for dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			w.logger.Debug("failed to watch track directory", "dir", dir, "error", err)
		}
	}

	w.watcher = fsw
	w.running = true
	w.doneCh = make(chan struct{})

	go w.watchLoop(ctx, fsw, w.doneCh)

	w.logger.Debug("track watcher started", "dirs", len(w.dirs))
	return nil
}

// Stop stops watching track files.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	fsw := w.watcher
	done := w.doneCh
	w.watcher = nil
	w.mu.Unlock()

	_ = fsw.Close()
	<-done
	w.logger.Debug("track watcher stopped")
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("track watcher error", "error", err)
		}
	}
}

// handleEvent invalidates the cache entry of a changed watched track.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	path := filepath.Clean(event.Name)

	w.mu.RLock()
	watched := w.paths[path]
	callback := w.onChange
	w.mu.RUnlock()

	if !watched {
		return
	}

	w.logger.Debug("track changed, invalidating cache", "path", path, "op", event.Op.String())
	if w.cache != nil {
		w.cache.InvalidateCache(path)
	}
	if callback != nil {
		callback(path)
	}
}
