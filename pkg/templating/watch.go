package templating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch refreshes the templates whenever a template file in the template
// directory changes, until ctx is cancelled. Bursts of events are coalesced
// using WatchDebounceMs. Failed refreshes are logged and the previous set is
// kept.
func (tm *TemplateManager) Watch(ctx context.Context) error {
	dir := tm.GetTemplateDir()
	if dir == "" {
		return errors.New("templating: no template directory to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err = watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	tm.logger.Info("Watching template directory", "dir", dir)

	debounce := time.Duration(tm.GetConfig().WatchDebounceMs) * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isTemplateFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			tm.logger.Debug("Template file changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounce)
			pending = true

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			tm.logger.Warn("Template watcher error", "error", err)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := tm.Refresh(); err != nil {
				tm.logger.Error("Failed to refresh templates after change", "error", err)
				continue
			}
			tm.logger.Info("Templates refreshed after change")
		}
	}
}
