package deploy

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-runs a callback whenever a source rule tree changes.
//
// It watches the tree root and every category directory on the OS
// filesystem. Bursts of events are coalesced by a debounce timer, and the
// callback always runs on the goroutine that called Run, so installs never
// overlap.
type Watcher struct {
	source   string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
}

// NewWatcher creates a Watcher for the rule tree rooted at source.
func NewWatcher(source string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		source:   source,
		debounce: debounce,
		fsw:      fsw,
		logger:   logger,
	}
	if err := fsw.Add(source); err != nil {
		fsw.Close()
		return nil, err
	}
	for _, c := range Categories {
		w.watchCategory(CategoryDir(source, c))
	}
	return w, nil
}

// Close releases the underlying OS watches.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks until ctx is done, calling onChange after each settled burst of
// changes. Errors from onChange are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func() error) error {
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

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.logger.Debug("source change", "path", event.Name, "op", event.Op.String())
			if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == w.source {
				w.watchCategory(event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-fire:
			fire = nil
			if err := onChange(); err != nil {
				w.logger.Error("re-install failed", "error", err)
			}
		}
	}
}

// watchCategory adds a watch on dir if it is a category directory that exists.
func (w *Watcher) watchCategory(dir string) {
	if !isCategoryName(filepath.Base(dir)) {
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("failed to watch category", "path", dir, "error", err)
		return
	}
	w.logger.Debug("watching category", "path", dir)
}

func isCategoryName(name string) bool {
	for _, c := range Categories {
		if string(c) == name {
			return true
		}
	}
	return false
}
