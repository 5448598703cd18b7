package config

import (
	"log/slog"
	"sync"
)

// Store holds the current global Config and its backing file.
type Store struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

// NewStore loads path. An unreadable file is logged and replaced by the
// defaults in memory; it is not rewritten until Set is called.
func NewStore(path string) *Store {
	cfg, err := Load(path)
	if err != nil {
		slog.Warn("failed to load config, using defaults", "path", path, "error", err)
	}
	return &Store{path: path, cfg: cfg}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the config and saves it to disk.
func (s *Store) Set(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Save(s.path, cfg); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// Reload re-reads the backing file. On a parse error the current config is
// kept.
func (s *Store) Reload() (Config, error) {
	cfg, err := Load(s.path)
	if err != nil {
		return s.Get(), err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return cfg, nil
}
