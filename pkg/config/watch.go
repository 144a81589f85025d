package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/zulily/modeldb/pkg/logging"
)

// Watch reloads the global configuration whenever the config file is
// written. It blocks until ctx is cancelled; callers run it in its own
// goroutine. The directory is watched rather than the file itself so
// that atomic replace-by-rename (the usual editor and configmap update
// pattern) is observed.
func Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path := Get().ConfigFilePath()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := Reload(); err != nil {
				logging.Error("config reload failed", zap.String("path", path), zap.Error(err))
				continue
			}
			logging.Info("configuration reloaded", zap.String("path", path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("config watcher error", zap.Error(err))
		}
	}
}
