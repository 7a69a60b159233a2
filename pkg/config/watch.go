package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/latticebi/lattice/pkg/observability"
)

// WatchLogLevel watches the config file and applies log-level changes to
// the logger at runtime. Other settings require a restart. The returned
// close function stops the watcher.
func WatchLogLevel(path string, logger *observability.Logger) (func() error, error) {
	if path == "" {
		return func() error { return nil }, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				cfg, err := LoadConfigFile(path)
				if err != nil {
					logger.WithError(err).Warn("ignoring config reload with invalid contents")
					continue
				}

				logger.SetLevel(cfg.Observability.LogLevel)
				logger.Infof("log level set to %s", cfg.Observability.LogLevel)

				// Editors replace files; re-add in case the inode changed.
				watcher.Add(path)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("config watcher error")
			}
		}
	}()

	return watcher.Close, nil
}
