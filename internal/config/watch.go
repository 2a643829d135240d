package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"tileserv/internal/logging"
)

// debounceDelay coalesces the write bursts editors and atomic-save tools
// produce into a single reload.
const debounceDelay = 250 * time.Millisecond

// Watch invokes fn whenever the config file changes, until ctx is
// cancelled. The parent directory is watched rather than the file
// itself, so rename-based atomic saves keep working.
//
// Watch blocks; run it in its own goroutine. Errors from fn are logged,
// not fatal: a bad config edit must not take down a serving process.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func() error) error {
	logger = logging.Default(logger).With("component", "config-watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	base := filepath.Base(path)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				timerC = timer.C
			} else {
				timer.Reset(debounceDelay)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			logger.Info("config file changed, reloading", "path", path)
			if err := fn(); err != nil {
				logger.Error("config reload failed, keeping previous configuration", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
