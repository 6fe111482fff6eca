package snapshot

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of file events into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a store whenever files under a directory tree change.
type Watcher struct {
	store    *Store
	root     string
	match    func(path string) bool
	debounce time.Duration

	// OnReload, if set, is called after every reload attempt.
	OnReload func(*Snapshot, error)
}

// NewWatcher watches root recursively. Only events on paths accepted by
// match trigger a reload; a nil match accepts every path.
func NewWatcher(store *Store, root string, match func(path string) bool, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{store: store, root: root, match: match, debounce: debounce}
}

// Run blocks until ctx is done or the underlying watcher closes.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if _, err := w.addTree(fw, w.root); err != nil {
		return err
	}
	w.store.logger.InfoContext(ctx, "watching manifests", "root", w.root)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.changed(ctx, fw, ev) {
				continue
			}
			w.store.logger.DebugContext(ctx, "manifest changed", "path", ev.Name, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.store.logger.WarnContext(ctx, "watcher error", "error", err)
		case <-fire:
			fire = nil
			snap, err := w.store.Reload(ctx)
			if w.OnReload != nil {
				w.OnReload(snap, err)
			}
		}
	}
}

// changed reports whether ev calls for a reload. New directories join the
// watch; a directory moved or copied in raises no events for the files it
// already holds, so those are looked for here.
func (w *Watcher) changed(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			found, err := w.addTree(fw, ev.Name)
			if err != nil {
				w.store.logger.WarnContext(ctx, "watch new directory", "path", ev.Name, "error", err)
			}
			return found
		}
	}
	return w.relevant(ev)
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		return true
	}
	return w.match == nil || w.match(ev.Name)
}

// addTree watches every directory under root and reports whether the tree
// already holds a matching file.
func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) (found bool, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if w.match == nil || w.match(path) {
				found = true
			}
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
	return found, err
}
