// Package clock provides a free running pulse source.
package clock

import (
	"math"

	"github.com/littleutils/cvmod/dsp/pulse"
	"github.com/littleutils/cvmod/sim"
)

// Model is the model name of the module.
const Model = "Clock"

// Param and port names.
const (
	ParamRate  = "rate"
	ParamWidth = "width"
	OutputOut  = "out"
)

// High is the voltage of a pulse.
const High = 10.0

// A Module emits a pulse of the width param every 1/rate seconds, starting
// with the first frame.
type Module struct {
	*sim.ModuleBase

	rate  *sim.Param
	width *sim.Param
	out   *sim.Port

	phase float64
	gen   *pulse.Generator
}

// New creates a clock.
func New(name string) *Module {
	m := &Module{
		ModuleBase: sim.NewModuleBase(name, Model),
		gen:        pulse.NewGenerator(),
		phase:      1,
	}

	m.rate = m.AddParam(ParamRate, 0.01, 100, 2)
	m.width = m.AddParam(ParamWidth, 0.001, 1, 0.01)
	m.out = m.AddOutput(OutputOut)

	return m
}

// Step processes one frame.
func (m *Module) Step(args sim.ProcessArgs) {
	m.phase += m.rate.Value() * args.SampleTime
	if m.phase >= 1 {
		m.phase -= math.Floor(m.phase)
		m.gen.Trigger(m.width.Value())
	}

	high := m.gen.Active()
	m.gen.Advance(args.SampleTime)

	m.out.SetChannels(1)
	if high {
		m.out.SetVoltage(High, 0)
	} else {
		m.out.SetVoltage(0, 0)
	}
}

// Reset restarts the clock so that the next frame fires.
func (m *Module) Reset() {
	m.phase = 1
	m.gen.Reset()
}
