package teleport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/littleutils/cvmod/registry"
	"github.com/littleutils/cvmod/sim"
)

// Out emits the value published under its selected label, or 0 V when no
// label is selected.
type Out struct {
	*sim.ModuleBase

	output   *sim.Port
	registry Registry
	logger   *slog.Logger

	lock  sync.Mutex
	label string
}

// Label returns the selected label. An empty label means disconnected.
func (m *Out) Label() string {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.label
}

// SetLabel adopts label without checking the registry.
func (m *Out) SetLabel(label string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.label = label
}

// Step reads the selected label. A label that is no longer live clears the
// selection.
func (m *Out) Step(args sim.ProcessArgs) {
	m.output.SetChannels(1)

	label := m.Label()
	if label == "" {
		m.output.SetVoltage(0, 0)
		return
	}

	v, ok := m.registry.Read(label)
	if !ok {
		m.disconnect(label, args.Frame)
		m.output.SetVoltage(0, 0)

		return
	}

	m.output.SetVoltage(v, 0)
}

func (m *Out) disconnect(label string, frame uint64) {
	m.lock.Lock()
	if m.label == label {
		m.label = ""
	}
	m.lock.Unlock()

	m.logger.Info("teleport source vanished",
		"module", m.Name(), "label", label, "frame", frame)

	m.InvokeHook(sim.HookCtx{
		Domain: m,
		Pos:    HookPosDisconnected,
		Item:   label,
		Detail: frame,
	})
}

// Menu lists the live labels with the current selection checked.
func (m *Out) Menu() []registry.MenuItem {
	return registry.MenuItems(m.registry.Entries(), m.Label())
}

// Select applies a menu choice and returns the resulting selection.
func (m *Out) Select(requested string) string {
	labels := m.registry.Labels()

	m.lock.Lock()
	defer m.lock.Unlock()

	m.label = registry.Select(labels, m.label, requested)

	return m.label
}

// SetOption implements sim.Configurable.
func (m *Out) SetOption(key, value string) error {
	if key != OptionLabel {
		return fmt.Errorf("%w: %s on %s", sim.ErrUnknownOption, key, m.Name())
	}

	m.SetLabel(value)

	return nil
}

// DataToJSON implements sim.Persistent.
func (m *Out) DataToJSON() json.RawMessage {
	return encodeLabel(m.Label())
}

// DataFromJSON adopts the persisted label if it is empty or well-formed. The
// label does not need to be live yet; Step disconnects if it never appears.
func (m *Out) DataFromJSON(data json.RawMessage) {
	label, ok := decodeLabel(data, m.logger)
	if !ok {
		return
	}

	if label != "" && !registry.IsValidLabel(label) {
		m.logger.Debug("ignoring malformed teleport label",
			"module", m.Name(), "label", label)
		return
	}

	m.SetLabel(label)
}
