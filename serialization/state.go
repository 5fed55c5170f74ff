// Package serialization saves and restores the params and module data of a
// running patch.
package serialization

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/littleutils/cvmod/sim"
)

// Version is the state format written by this package.
const Version = 1

// ErrUnsupportedVersion is returned for state files of another format.
var ErrUnsupportedVersion = errors.New("unsupported state version")

// State is the saved state of every module of an engine.
type State struct {
	Version int           `json:"version"`
	Modules []ModuleState `json:"modules"`
}

// ModuleState is the saved state of one module.
type ModuleState struct {
	Name   string             `json:"name"`
	Model  string             `json:"model"`
	Params map[string]float64 `json:"params,omitempty"`
	Data   json.RawMessage    `json:"data,omitempty"`
}

// Find returns the state of the named module.
func (s *State) Find(name string) (ModuleState, bool) {
	for _, m := range s.Modules {
		if m.Name == name {
			return m, true
		}
	}

	return ModuleState{}, false
}

// Capture records the state of every module between two frames.
func Capture(engine sim.Engine) *State {
	s := &State{Version: Version}
	modules := engine.Modules()

	engine.Do(func() {
		for _, m := range modules {
			s.Modules = append(s.Modules, captureModule(m))
		}
	})

	return s
}

func captureModule(m sim.Module) ModuleState {
	ms := ModuleState{
		Name:  m.Name(),
		Model: m.Model(),
	}

	if params := m.Params(); len(params) > 0 {
		ms.Params = make(map[string]float64, len(params))
		for _, p := range params {
			ms.Params[p.Name()] = p.Value()
		}
	}

	if persistent, ok := m.(sim.Persistent); ok {
		ms.Data = persistent.DataToJSON()
	}

	return ms
}

// Restore applies s to the modules of engine that match by name and model.
// Other entries are skipped with a warning. Params are restored before
// module data.
func Restore(engine sim.Engine, s *State, logger *slog.Logger) error {
	if s.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}

	if logger == nil {
		logger = slog.Default()
	}

	for _, ms := range s.Modules {
		m, ok := engine.Module(ms.Name)
		if !ok {
			logger.Warn("skipping state of missing module", "module", ms.Name)
			continue
		}

		if m.Model() != ms.Model {
			logger.Warn("skipping state of module with another model",
				"module", ms.Name, "saved", ms.Model, "actual", m.Model())
			continue
		}

		engine.Do(func() { restoreModule(m, ms, logger) })
	}

	return nil
}

func restoreModule(m sim.Module, ms ModuleState, logger *slog.Logger) {
	for name, v := range ms.Params {
		p, err := sim.FindParam(m, name)
		if err != nil {
			logger.Warn("skipping unknown param", "error", err)
			continue
		}

		p.SetValue(v)
	}

	if persistent, ok := m.(sim.Persistent); ok && len(ms.Data) > 0 {
		persistent.DataFromJSON(ms.Data)
	}
}
