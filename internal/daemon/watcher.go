package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// SourceWatcher monitors the configured paths and forwards change events
// to the debouncer.
type SourceWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
}

// NewSourceWatcher creates a watcher over the given paths, resolved
// relative to projectDir. Directories are watched recursively.
func NewSourceWatcher(projectDir string, paths []string, debouncer *Debouncer) (*SourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	sw := &SourceWatcher{watcher: watcher, debouncer: debouncer}

	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(p) {
			abs = filepath.Join(projectDir, p)
		}
		if err := sw.addRecursive(abs); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
		}
	}

	return sw, nil
}

func (sw *SourceWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return sw.watcher.Add(path)
		}
		return nil
	})
}

// Run forwards filesystem events to the debouncer until the context is
// canceled.
func (sw *SourceWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("Source change detected", "path", event.Name, "op", event.Op.String())
			// Newly created directories need to be added to the watch set.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = sw.addRecursive(event.Name)
				}
			}
			sw.debouncer.Trigger("watch:" + event.Name)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", "error", err)
		}
	}
}

// Close releases the underlying watcher.
func (sw *SourceWatcher) Close() error {
	return sw.watcher.Close()
}
