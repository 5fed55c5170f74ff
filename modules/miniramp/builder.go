package miniramp

import (
	"log/slog"

	"github.com/littleutils/cvmod/dsp/duration"
	"github.com/littleutils/cvmod/sim"
)

// DefaultDuration is the knob position of a new module. It is 0.1 s in
// logarithmic mode and 5 s in linear mode.
const DefaultDuration = 5.0

// initialBase is the duration reported before the first frame.
const initialBase = 0.5

// Builder can build Miniramp modules.
type Builder struct {
	finishedMode FinishedMode
	logger       *slog.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		finishedMode: FinishedLow,
	}
}

// WithFinishedMode sets the idle ramp level.
func (b Builder) WithFinishedMode(mode FinishedMode) Builder {
	b.finishedMode = mode
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a module with the given name.
func (b Builder) Build(name string) *Module {
	m := &Module{
		ModuleBase:   sim.NewModuleBase(name, Model),
		controller:   duration.NewController(initialBase),
		finishedMode: b.finishedMode,
		logger:       b.logger,
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}

	m.durationParam = m.AddParam(ParamDuration,
		duration.KnobMin, duration.KnobMax, DefaultDuration)
	m.cvAmount = m.AddParam(ParamCVAmount, -1, 1, 0)
	m.mode = m.AddParam(ParamMode, 0, 1, float64(duration.Logarithmic))

	m.trigger = m.AddInput(InputTrigger)
	m.durationCV = m.AddInput(InputDurationCV)
	m.reset = m.AddInput(InputReset)

	m.ramp = m.AddOutput(OutputRamp)
	m.gate = m.AddOutput(OutputGate)
	m.eoc = m.AddOutput(OutputEOC)
	m.finish = m.AddOutput(OutputFinish)

	for c := range m.channels {
		m.channels[c] = NewChannel()
	}

	return m
}
