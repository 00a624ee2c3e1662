package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
)

// Editors often write files in multiple steps.
const debounceDelay = 100 * time.Millisecond

// Watch loads filename and calls onLoad with the result, then again every time the file or
// one of its includes changes, until ctx is cancelled. Load failures are handed to onLoad
// too so that a broken edit does not stop the watch.
//
// onLoad is called from the goroutine running Watch, never concurrently.
func (l *Loader) Watch(ctx context.Context, filename string, onLoad func(*Result, error)) (err error) {
	if filename == Stdin {
		return fmt.Errorf("cannot watch standard input")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		err = multierr.Append(err, watcher.Close())
	}()

	watched := make(map[string]bool)
	reload := func() {
		result, err := l.Load(ctx, filename)
		onLoad(result, err)
		if err != nil {
			return
		}
		l.updateWatches(watcher, watched, result.Files())
	}

	root, err := l.Load(ctx, filename)
	onLoad(root, err)
	files := []string{filename}
	if err == nil {
		files = root.Files()
	}
	l.updateWatches(watcher, watched, files)

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Remove and rename are common in atomic saves.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(debounceDelay)
			fire = debounce.C

		case <-fire:
			fire = nil
			reload()

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("file watcher error", "error", werr)
		}
	}
}

// updateWatches makes watcher follow exactly files. Current files are added again so that
// files re-created by an atomic save are picked up.
func (l *Loader) updateWatches(watcher *fsnotify.Watcher, watched map[string]bool, files []string) {
	current := make(map[string]bool, len(files))
	for _, f := range files {
		current[f] = true
	}

	for f := range watched {
		if !current[f] {
			_ = watcher.Remove(f)
			delete(watched, f)
		}
	}

	for f := range current {
		if err := watcher.Add(f); err != nil {
			l.logger.Warn("failed to watch file", "file", f, "error", err)
			continue
		}
		watched[f] = true
	}
}
