package buildcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher holds the latest parse of a CMakeCache.txt and reloads it when the
// file changes.
type Watcher struct {
	path   string
	logger *slog.Logger

	mu  sync.RWMutex
	cur *Cache
}

// NewWatcher returns a Watcher for the cache file at path. The snapshot is
// empty until Reload or Run is called.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, logger: logger, cur: Empty()}
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Current returns the latest snapshot. It is never nil.
func (w *Watcher) Current() *Cache {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Reload re-reads the cache file. A missing file yields an empty snapshot.
func (w *Watcher) Reload() error {
	f, err := os.Open(w.path)
	if errors.Is(err, os.ErrNotExist) {
		w.set(Empty())
		return nil
	}
	if err != nil {
		return fmt.Errorf("buildcache: open: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return err
	}
	w.set(c)
	w.logger.Debug("build cache loaded", "path", w.path, "entries", len(c.Entries()), "not_found", len(c.NotFound()))
	return nil
}

func (w *Watcher) set(c *Cache) {
	w.mu.Lock()
	w.cur = c
	w.mu.Unlock()
}

// Run loads the cache and reloads it whenever the file is written, created,
// renamed or removed, until ctx is done. The parent directory is watched so
// the file may appear after Run starts.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("buildcache: watch: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("buildcache: watch %s: %w", filepath.Dir(w.path), err)
	}
	if err := w.Reload(); err != nil {
		w.logger.Warn("build cache reload failed", "path", w.path, "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if err := w.Reload(); err != nil {
				w.logger.Warn("build cache reload failed", "path", w.path, "err", err)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("build cache watch error", "path", w.path, "err", err)
		}
	}
}
