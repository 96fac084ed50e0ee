package config

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager holds the current configuration and reloads it when the file changes.
// An invalid edit is logged and the previous configuration stays in effect.
type Manager struct {
	path string

	mu        sync.RWMutex
	config    *Config
	raw       []byte // file contents behind config
	listeners []func(*Config)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager(configPath string) (*Manager, error) {
	config, err := LoadFile(configPath)
	if err != nil {
		log.Printf("config: failed to load initial configuration: %v", err)
		return nil, err
	}
	if err := config.Validate(); err != nil {
		log.Printf("config: validation warning: %v", err)
	}
	raw, _ := os.ReadFile(configPath)
	return &Manager{path: configPath, config: config, raw: raw}, nil
}

// NewStaticManager serves cfg without a backing file; StartWatching is a no-op
func NewStaticManager(cfg *Config) *Manager {
	return &Manager{config: cfg}
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// OnChange registers fn to run with each successfully reloaded configuration
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// reloadDelay coalesces the burst of events a single save produces
const reloadDelay = 100 * time.Millisecond

// StartWatching reloads the file whenever it changes until ctx ends or Stop is called.
// The directory is watched because editors often replace the file instead of writing it.
func (m *Manager) StartWatching(ctx context.Context) error {
	if m.path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(m.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(m.path), err)
	}
	m.watcher = w

	m.wg.Add(1)
	go m.watchLoop(ctx, w)
	log.Printf("config: watching %s", m.path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer m.wg.Done()

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(reloadDelay)
			}
		case <-timer.C:
			m.reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("config: watcher: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

// reload applies the file if it parses, validates and differs from what is loaded
func (m *Manager) reload() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		log.Printf("config: reload: %v", err)
		return
	}
	m.mu.RLock()
	same := m.raw != nil && bytes.Equal(data, m.raw)
	m.mu.RUnlock()
	if same {
		return
	}

	cfg, err := LoadFile(m.path)
	if err != nil {
		log.Printf("config: reload: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("config: ignoring invalid edit: %v", err)
		return
	}

	m.mu.Lock()
	m.config = cfg
	m.raw = data
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	log.Printf("config: reloaded %s", m.path)
	for _, fn := range listeners {
		fn(cfg)
	}
}
