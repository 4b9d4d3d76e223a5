package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/shelfsync/internal/logger"
)

// DefaultDebounce is how long Watch waits for changes to settle.
const DefaultDebounce = 2 * time.Second

// Watch calls onChange after markdown files under root change and then stay
// quiet for debounce. New subdirectories are watched as they appear. It
// blocks until ctx ends and returns nil on cancellation.
func Watch(ctx context.Context, root string, debounce time.Duration, onChange func(ctx context.Context)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() && !isHidden(event.Name) {
					if addErr := addTree(watcher, event.Name); addErr != nil {
						logger.Warn("vault watch: %v", addErr)
					}
				}
			}
			if relevant(event) {
				logger.Debug("vault watch: %s %s", event.Op, event.Name)
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("vault watch: %v", err)

		case <-timer.C:
			onChange(ctx)
		}
	}
}

// relevant reports whether an event can change what FetchNotes returns.
// Removing or renaming a directory drops the notes inside it.
func relevant(event fsnotify.Event) bool {
	if isHidden(event.Name) {
		return false
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return true
	}
	return isMarkdown(event.Name) && (event.Has(fsnotify.Create) || event.Has(fsnotify.Write))
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
