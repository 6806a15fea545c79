// Package watch triggers rebuilds when an input file changes or on a fixed
// interval.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// DefaultDebounce collapses editor save bursts into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Watcher monitors a single file and invokes a callback after it settles.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	onChange func(context.Context)

	closeOnce sync.Once
	closeErr  error
}

// NewWatcher starts watching the directory that contains path. Watching the
// directory survives editors that replace the file on save.
func NewWatcher(path string, debounce time.Duration, onChange func(context.Context)) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(absPath)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return &Watcher{
		path:     absPath,
		debounce: debounce,
		watcher:  fw,
		onChange: onChange,
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Close stops watching. It is safe to call more than once and before or
// after Run.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { w.closeErr = w.watcher.Close() })
	return w.closeErr
}

// Run blocks until ctx is cancelled, the watcher is closed or the underlying
// watcher fails. The callback runs on the Run goroutine, so rebuilds never
// overlap.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.Close() }()

	slog.Info("Watching input for changes", logfields.Source(w.path), slog.Duration("debounce", w.debounce))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("Input change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.onChange(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != filepath.Base(w.path) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
