package teleport

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/littleutils/cvmod/sim"
)

// In publishes channel 0 of its input under a label it owns.
type In struct {
	*sim.ModuleBase

	input    *sim.Port
	registry Registry
	logger   *slog.Logger

	lock  sync.Mutex
	label string
}

// Label returns the label the module publishes under.
func (m *In) Label() string {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.label
}

// Step publishes the input voltage. A label that vanished from under the
// module, which only happens when the registry is torn down, stops publishing.
func (m *In) Step(args sim.ProcessArgs) {
	label := m.Label()
	if label == "" {
		return
	}

	err := m.registry.Write(label, m.input.Voltage())
	if err == nil {
		return
	}

	m.lock.Lock()
	if m.label == label {
		m.label = ""
	}
	m.lock.Unlock()

	m.logger.Debug("teleport label lost",
		"module", m.Name(), "label", label, "frame", args.Frame, "error", err)
}

// OnRemove releases the label.
func (m *In) OnRemove() {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.label != "" {
		m.registry.Remove(m.label)
	}

	m.label = ""
}

// DataToJSON implements sim.Persistent.
func (m *In) DataToJSON() json.RawMessage {
	return encodeLabel(m.Label())
}

// DataFromJSON adopts the persisted label. If the label is already live the
// module is a duplicate of a running module and takes a fresh label instead.
func (m *In) DataFromJSON(data json.RawMessage) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.label != "" {
		m.registry.Remove(m.label)
		m.label = ""
	}

	label, ok := decodeLabel(data, m.logger)

	switch {
	case !ok || label == "":
		m.logger.Debug("no persisted label, generating one", "module", m.Name())
	case m.registry.Has(label):
		m.logger.Debug("persisted label is live, generating a new one",
			"module", m.Name(), "label", label)
	default:
		if err := m.registry.Insert(label, 0); err == nil {
			m.label = label
			return
		}
	}

	m.claimUniqueLabel()
}

func (m *In) claimUniqueLabel() {
	label, err := m.registry.InsertUnique(0)
	if err != nil {
		m.logger.Error("cannot claim a teleport label",
			"module", m.Name(), "error", err)
		return
	}

	m.label = label
}
