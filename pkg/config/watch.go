package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/entrhq/webpilot/pkg/browser"
)

// Logger receives reload messages. *logging.Logger satisfies it.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

// Holder keeps the current configuration and reloads it from disk.
type Holder struct {
	path string

	mu  sync.RWMutex
	cfg *Config
}

// NewHolder wraps cfg, which was loaded from path. path may be empty when
// the configuration did not come from a file.
func NewHolder(path string, cfg *Config) *Holder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Holder{path: path, cfg: cfg}
}

// Current returns a copy of the current configuration.
func (h *Holder) Current() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.Clone()
}

// Session returns the session section. It is a browser.ConfigSource so each
// Initialize picks up the latest file contents.
func (h *Holder) Session() browser.SessionConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.cfg.Session
	s.Args = append([]string(nil), s.Args...)
	return s
}

// Update replaces the configuration after validating it.
func (h *Holder) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	h.cfg = cfg.Clone()
	h.mu.Unlock()
	return nil
}

// Reload re-reads the file. On error the previous configuration is kept.
func (h *Holder) Reload() (*Config, error) {
	if h.path == "" {
		return h.Current(), nil
	}
	cfg, err := Load(h.path)
	if err != nil {
		return nil, err
	}
	if err := h.Update(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch reloads the configuration whenever the file changes, until ctx is
// done. onChange, if set, receives every successfully reloaded configuration.
// The parent directory is watched so editors that replace the file by rename
// are handled.
func (h *Holder) Watch(ctx context.Context, logger Logger, onChange func(*Config)) error {
	if h.path == "" {
		return fmt.Errorf("no configuration file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	target := filepath.Clean(h.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}

				cfg, err := h.Reload()
				if err != nil {
					logger.Warnf("Ignoring configuration change: %v", err)
					continue
				}
				logger.Infof("Configuration reloaded from %s", target)
				if onChange != nil {
					onChange(cfg)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("Configuration watcher error: %v", err)
			}
		}
	}()

	return nil
}
