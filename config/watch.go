package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

var watchDebounce = 150 * time.Millisecond

// Watch reloads path whenever it is written and calls onChange with the
// result from the watcher goroutine. The parent directory is watched so
// editors that replace the file are seen too. Watch returns once the
// watcher is installed; it stops when ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(path), err)
	}
	go func() {
		defer w.Close()
		watchLoop(ctx, w, filepath.Clean(path), onChange)
	}()
	return nil
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, path string, onChange func(*Config, error)) {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if !timer.Stop() && pending {
				select {
				case <-timer.C:
				default:
				}
			}
			pending = true
			timer.Reset(watchDebounce)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			onChange(read(path))
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}
