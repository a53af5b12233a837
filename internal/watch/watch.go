// Package watch rebuilds a content set's tree when its index file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader rebuilds a whole tree. *site.Set satisfies it.
type Reloader interface {
	Reload() error
}

// Target pairs an index file on disk with the set it feeds.
type Target struct {
	Name      string
	IndexPath string // Filesystem path of index.yaml
	Set       Reloader
}

// Watcher monitors index files and triggers debounced reloads.
type Watcher struct {
	watcher  *fsnotify.Watcher
	targets  map[string]Target // keyed by absolute index path
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// New creates a watcher for targets. Directories are watched rather than the
// files themselves so that editors that replace files are still observed.
func New(targets []Target, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		targets:  make(map[string]Target, len(targets)),
		debounce: debounce,
		log:      log,
		pending:  map[string]*time.Timer{},
	}

	dirs := map[string]bool{}
	for _, t := range targets {
		abs, err := filepath.Abs(t.IndexPath)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolve index path %s: %w", t.IndexPath, err)
		}
		w.targets[abs] = t
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	return w, nil
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	w.log.Info("watching index files", "count", len(w.targets))
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("index watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	t, ok := w.targets[abs]
	if !ok {
		return
	}

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
		w.log.Debug("index change detected", "set", t.Name, "op", event.Op.String())
		w.schedule(abs, t)
	case event.Has(fsnotify.Remove):
		// A removed index fails to load; the set keeps its last good tree.
		w.log.Warn("index file removed", "set", t.Name, "path", abs)
		w.schedule(abs, t)
	}
}

// schedule restarts the debounce timer for one index.
func (w *Watcher) schedule(abs string, t Target) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[abs]; ok {
		timer.Stop()
	}
	w.pending[abs] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		delete(w.pending, abs)
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		if err := t.Set.Reload(); err != nil {
			w.log.Error("index reload failed", "set", t.Name, "error", err)
			return
		}
		w.log.Info("index reloaded", "set", t.Name)
	})
}

func (w *Watcher) close() {
	w.mu.Lock()
	w.closed = true
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = map[string]*time.Timer{}
	w.mu.Unlock()

	w.wg.Wait()
	if err := w.watcher.Close(); err != nil {
		w.log.Error("close index watcher", "error", err)
	}
}
