package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Manager holds the current configuration and reloads it when the file changes.
type Manager struct {
	path string

	mu        sync.RWMutex
	config    *Config
	listeners []func(old, new *Config)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewManager loads path (the default location when empty).
func NewManager(path string) (*Manager, error) {
	configPath, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	config, err := Load(configPath)
	if err != nil {
		zap.S().Errorf("config manager: failed to load initial configuration: %v", err)
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Manager{path: configPath, config: config}, nil
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modification
	configCopy := *m.config
	return &configCopy
}

// OnChange registers fn to run after every successful reload.
func (m *Manager) OnChange(fn func(old, new *Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// editors replace the file, so watch the directory
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	zap.S().Infof("config manager: watching %s for changes", m.path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != configFileName {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				zap.S().Infof("config manager: file change detected: %s. Reloading config...", event.Name)
				m.Reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			zap.S().Warnf("config manager: watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

// Reload re-reads the file. An unreadable or invalid file keeps the current config.
func (m *Manager) Reload() bool {
	newConfig, err := Load(m.path)
	if err != nil {
		zap.S().Warnf("config manager: failed to reload config: %v", err)
		return false
	}

	if err := newConfig.Validate(); err != nil {
		zap.S().Warnf("config manager: invalid config after reload, keeping previous: %v", err)
		return false
	}

	m.mu.Lock()
	old := m.config
	m.config = newConfig
	listeners := append([]func(old, new *Config){}, m.listeners...)
	m.mu.Unlock()

	if newConfig.RestartRequired(old) {
		zap.S().Warnf("config manager: recording, hotkey or logging changes take effect after restart")
	}
	for _, fn := range listeners {
		fn(old, newConfig)
	}

	zap.S().Infof("config manager: configuration successfully reloaded")
	return true
}
