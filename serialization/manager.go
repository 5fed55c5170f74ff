package serialization

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/littleutils/cvmod/sim"
)

// Manager saves and loads engine states in files.
type Manager struct {
	codec  *JSONCodec
	lock   sync.Mutex
	logger *slog.Logger
}

// NewManager creates a manager.
func NewManager(codec *JSONCodec, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		codec:  codec,
		logger: logger,
	}
}

// Save writes the state of engine to path. The file is replaced atomically.
func (m *Manager) Save(engine sim.Engine, path string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	s := Capture(engine)

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	if err := m.codec.Encode(s, tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save state: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	m.logger.Info("state saved", "path", path, "modules", len(s.Modules))

	return nil
}

// Load restores the state in path into engine.
func (m *Manager) Load(engine sim.Engine, path string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	defer f.Close()

	s, err := m.codec.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode state %s: %w", path, err)
	}

	if err := Restore(engine, s, m.logger); err != nil {
		return err
	}

	m.logger.Info("state restored", "path", path, "modules", len(s.Modules))

	return nil
}
