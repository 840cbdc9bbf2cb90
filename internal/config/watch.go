package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"popcorn/internal/utils"
)

// Watch reloads the config file whenever it changes and hands the fresh
// config to onChange. It watches the parent directory so editors that replace
// the file atomically are picked up. Returns when ctx is done.
func Watch(ctx context.Context, path string, logger *utils.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		target := filepath.Clean(path)
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// editors emit bursts of events for a single save
				pending = time.After(200 * time.Millisecond)
			case <-pending:
				pending = nil
				cfg, err := Load(path)
				if err != nil {
					logger.Error("Config reload failed:", err)
					continue
				}
				logger.Info("Config reloaded from", path)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("Config watcher error:", err)
			}
		}
	}()

	return nil
}
