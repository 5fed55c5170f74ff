// Package teleport provides a pair of modules that carry a voltage from an
// input to any number of outputs through a label registry instead of a
// cable.
package teleport

import (
	"encoding/json"
	"log/slog"

	"github.com/littleutils/cvmod/registry"
	"github.com/littleutils/cvmod/sim"
)

// Model names.
const (
	InModel  = "TeleportIn"
	OutModel = "TeleportOut"
)

// Port and option names.
const (
	InputIn     = "in"
	OutputOut   = "out"
	OptionLabel = "label"
)

// HookPosDisconnected marks an output losing its source. The hook item is the
// label that vanished.
var HookPosDisconnected = &sim.HookPos{Name: "Disconnected"}

// Registry is the part of the label registry that the modules use.
type Registry interface {
	InsertUnique(value float32) (string, error)
	Insert(label string, value float32) error
	Remove(label string) bool
	Has(label string) bool
	Write(label string, value float32) error
	Read(label string) (float32, bool)
	Entries() []registry.Entry
	Labels() []string
	DefaultLabel() string
}

type state struct {
	Label *string `json:"label"`
}

func encodeLabel(label string) json.RawMessage {
	data, err := json.Marshal(state{Label: &label})
	if err != nil {
		panic(err)
	}

	return data
}

// decodeLabel returns the persisted label, or false if data does not hold a
// string label.
func decodeLabel(data json.RawMessage, logger *slog.Logger) (string, bool) {
	var s state

	if err := json.Unmarshal(data, &s); err != nil {
		logger.Debug("malformed teleport state", "error", err)
		return "", false
	}

	if s.Label == nil {
		return "", false
	}

	return *s.Label, true
}
