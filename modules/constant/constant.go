// Package constant provides a fixed voltage source.
package constant

import "github.com/littleutils/cvmod/sim"

// Model is the model name of the module.
const Model = "Constant"

// Param and port names.
const (
	ParamVoltage = "voltage"
	OutputOut    = "out"
)

// A Module outputs the value of its voltage param.
type Module struct {
	*sim.ModuleBase

	voltage *sim.Param
	out     *sim.Port
}

// New creates a constant source.
func New(name string) *Module {
	m := &Module{ModuleBase: sim.NewModuleBase(name, Model)}
	m.voltage = m.AddParam(ParamVoltage, -10, 10, 0)
	m.out = m.AddOutput(OutputOut)

	return m
}

// Step processes one frame.
func (m *Module) Step(_ sim.ProcessArgs) {
	m.out.SetChannels(1)
	m.out.SetVoltage(float32(m.voltage.Value()), 0)
}
