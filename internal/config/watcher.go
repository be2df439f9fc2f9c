// internal/config/watcher.go
package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/internal/watch"
)

// reloadDelay coalesces the burst of events an editor save produces
const reloadDelay = 200 * time.Millisecond

// ConfigWatcher reloads the configuration file when it changes and passes
// every valid result to the registered callbacks. Invalid files are logged
// and ignored, so the last good configuration stays in effect.
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	logger     utils.Logger
	debouncer  *watch.Debouncer
	done       chan struct{}

	mu        sync.RWMutex
	callbacks []func(*Config)
	stopped   bool
}

// NewConfigWatcher starts watching configPath
func NewConfigWatcher(configPath string, logger utils.Logger) (*ConfigWatcher, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	cw := &ConfigWatcher{
		watcher:    watcher,
		configPath: absPath,
		logger:     utils.NewModuleLogger(logger, "config"),
		done:       make(chan struct{}),
	}
	cw.debouncer = watch.NewDebouncer(reloadDelay, cw.reload)

	// the directory, because editors replace the file through a rename
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go cw.watch()
	return cw, nil
}

// OnChange registers a callback to be called when the config changes
func (cw *ConfigWatcher) OnChange(callback func(*Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

func (cw *ConfigWatcher) watch() {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.configPath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				cw.debouncer.Trigger()
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.WithField("error", err.Error()).Warn("config watcher error")
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cw.mu.RLock()
	if cw.stopped {
		cw.mu.RUnlock()
		return
	}
	callbacks := make([]func(*Config), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	config, err := LoadFromFile(cw.configPath)
	if err != nil {
		cw.logger.WithField("error", err.Error()).Error("failed to reload config, keeping previous settings")
		return
	}

	cw.logger.WithField("path", cw.configPath).Info("configuration reloaded")
	for _, callback := range callbacks {
		callback(config)
	}
}

// Close stops the watcher and releases resources
func (cw *ConfigWatcher) Close() error {
	cw.mu.Lock()
	if cw.stopped {
		cw.mu.Unlock()
		return nil
	}
	cw.stopped = true
	cw.mu.Unlock()

	cw.debouncer.Stop()
	err := cw.watcher.Close()
	<-cw.done
	return err
}
