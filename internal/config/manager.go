package config

import (
	"log"
	"path/filepath"
	"sync"
)

// Manager owns the loaded configuration and reloads it when the file changes
// on disk. Reload callbacks get the fresh config; a file that fails to parse
// keeps the previous one.
type Manager struct {
	path    string
	mu      sync.RWMutex
	cfg     *Config
	watcher *FileWatcher
	onLoad  func(*Config)
}

// NewManager loads the config file and starts watching its directory.
func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	m := &Manager{path: path, cfg: cfg}

	watcher, err := NewFileWatcher(WatcherConfig{
		Handler: m.reload,
		Filter: func(name string) bool {
			return filepath.Base(name) == filepath.Base(path)
		},
		LogPrefix: "Config",
	})
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Stop()
		return nil, err
	}
	m.watcher = watcher
	return m, nil
}

// OnReload sets the callback invoked after a successful reload.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLoad = fn
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Stop stops the file watcher.
func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

func (m *Manager) reload() {
	cfg, err := Load(m.path)
	if err != nil {
		log.Printf("[Config] Reload failed, keeping previous config: %v", err)
		return
	}

	m.mu.Lock()
	m.cfg = cfg
	fn := m.onLoad
	m.mu.Unlock()

	if fn != nil {
		fn(cfg)
	}
}
