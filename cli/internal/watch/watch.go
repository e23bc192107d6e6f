// Package watch re-runs a callback when snapshot files change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/satishbabariya/prisma-schemadiff/internal/debug"
)

// DefaultDebounce coalesces the burst of events editors emit on save
const DefaultDebounce = 500 * time.Millisecond

// Callback is invoked once at start and after every settled change
type Callback func(ctx context.Context) error

// Watcher watches a set of files for changes
type Watcher struct {
	files    map[string]bool
	callback Callback
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for files. A non-positive debounce uses
// DefaultDebounce.
func NewWatcher(files []string, debounce time.Duration, callback Callback) (*Watcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		files:    make(map[string]bool, len(files)),
		callback: callback,
		debounce: debounce,
		watcher:  watcher,
	}

	dirs := make(map[string]bool)
	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		w.files[absPath] = true

		// Watch the directory so renames by editors are seen
		dir := filepath.Dir(absPath)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	return w, nil
}

// Run invokes the callback once, then again after each change, until ctx is
// done. Callback errors after the first run are logged and do not stop the
// watch.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.callback(ctx); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()
	var debounceCh <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			eventPath, err := filepath.Abs(event.Name)
			if err != nil || !w.files[eventPath] {
				continue
			}
			debug.Debug("Snapshot changed", "file", eventPath, "op", event.Op.String())
			debounceTimer.Reset(w.debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			if err := w.callback(ctx); err != nil {
				debug.Error("Watch callback failed", "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			debug.Warn("Watch error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
