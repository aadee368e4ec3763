package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/connectsphere/cli/cmd/config"
	"github.com/connectsphere/cli/cmd/utils"
)

const configDebounce = 100 * time.Millisecond

// ConfigWatcher reloads one config file whenever it changes on disk and
// delivers the result on Changes.
type ConfigWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	changes chan config.ConnectSphereConfig
	done    chan struct{}
	once    sync.Once
}

// WatchConfig starts watching path. The file does not need to exist yet,
// but its directory does.
func WatchConfig(path string) (*ConfigWatcher, error) {
	if path == "" {
		return nil, errors.New("no config path to watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// editors often replace the file on save, so watch the directory
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	cw := &ConfigWatcher{
		path:    abs,
		watcher: watcher,
		changes: make(chan config.ConnectSphereConfig, 1),
		done:    make(chan struct{}),
	}
	go cw.run()
	utils.LogDebug(fmt.Sprintf("watching config %s", abs))
	return cw, nil
}

// Changes is closed when the watcher stops.
func (cw *ConfigWatcher) Changes() <-chan config.ConnectSphereConfig { return cw.changes }

// Close stops the watcher. It is safe to call more than once.
func (cw *ConfigWatcher) Close() error {
	var err error
	cw.once.Do(func() {
		close(cw.done)
		err = cw.watcher.Close()
	})
	return err
}

func (cw *ConfigWatcher) run() {
	defer close(cw.changes)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-cw.done:
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce rapid changes
			if timer == nil {
				timer = time.NewTimer(configDebounce)
			} else {
				timer.Reset(configDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := config.LoadConfigFile(cw.path)
			if err != nil {
				utils.LogDebug(fmt.Sprintf("config reload %s: %v", cw.path, err))
				continue
			}
			select {
			case cw.changes <- *cfg:
			case <-cw.done:
				return
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			utils.LogDebug(fmt.Sprintf("config watcher error: %v", err))
		}
	}
}
