package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch reloads the configuration file each time it changes and
// passes valid configurations to onChange. Invalid files are logged and skipped.
// The parent directory is watched so that editors replacing the file are handled.
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *log.Logger, onChange func(config *Config)) error {
	if logger == nil {
		logger = log.StandardLogger()
	}
	entry := logger.WithField("service", "[CONFIG]")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()

	path = filepath.Clean(path)
	if err = watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	entry.Debugf("watching %v", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			config, err := Load(path)
			if err != nil {
				entry.Warnf("unable to reload %v : %v", path, err)
				continue
			}
			entry.Infof("reloaded %v", path)
			onChange(config)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			entry.Warnf("error watching %v : %v", path, err)
		}
	}
}
