// Package miniramp provides a polyphonic trigger to ramp converter with gate,
// end of cycle and finish outputs.
package miniramp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/littleutils/cvmod/dsp/duration"
	"github.com/littleutils/cvmod/sim"
)

// Model is the model name of the module.
const Model = "Miniramp"

// Param, port and option names.
const (
	ParamDuration = "duration"
	ParamCVAmount = "cv_amount"
	ParamMode     = "mode"

	InputTrigger    = "trigger"
	InputDurationCV = "duration_cv"
	InputReset      = "reset"

	OutputRamp   = "ramp"
	OutputGate   = "gate"
	OutputEOC    = "eoc"
	OutputFinish = "finish"

	OptionFinishedMode = "finished_mode"
)

// HookPosRampStart marks a ramp being triggered. The hook item is an Event.
var HookPosRampStart = &sim.HookPos{Name: "RampStart"}

// HookPosRampEnd marks a ramp reaching its duration.
var HookPosRampEnd = &sim.HookPos{Name: "RampEnd"}

// HookPosEOC marks the start of an end of cycle pulse.
var HookPosEOC = &sim.HookPos{Name: "EOC"}

// Event is the hook item of the ramp hooks.
type Event struct {
	Channel  int
	Frame    uint64
	Duration float64
}

type state struct {
	RampFinishedMode *int `json:"rampFinishedMode"`
}

// A Module runs one Channel per polyphony channel of its trigger input. The
// duration is shared by all channels and modulated by channel 0 of the
// duration CV input.
type Module struct {
	*sim.ModuleBase

	durationParam *sim.Param
	cvAmount      *sim.Param
	mode          *sim.Param

	trigger    *sim.Port
	durationCV *sim.Port
	reset      *sim.Port

	ramp   *sim.Port
	gate   *sim.Port
	eoc    *sim.Port
	finish *sim.Port

	controller   *duration.Controller
	channels     [sim.MaxChannels]*Channel
	finishedMode FinishedMode

	logger *slog.Logger
}

// Step processes one frame.
func (m *Module) Step(args sim.ProcessArgs) {
	dur := m.controller.Update(
		m.durationParam.Value(),
		m.cvAmount.Value(),
		float64(m.durationCV.Voltage()),
		duration.ModeFromSwitch(m.mode.Value()),
	)

	n := max(m.trigger.Channels(), 1)
	for _, p := range []*sim.Port{m.ramp, m.gate, m.eoc, m.finish} {
		p.SetChannels(n)
	}

	for c := 0; c < n; c++ {
		in := Inputs{
			Trigger: m.trigger.GetVoltage(c),
			Reset:   m.reset.GetVoltage(c),
		}

		out, ev := m.channels[c].Process(in, dur, m.finishedMode, args.SampleTime)

		m.ramp.SetVoltage(out.Ramp, c)
		m.gate.SetVoltage(out.Gate, c)
		m.eoc.SetVoltage(out.EOC, c)
		m.finish.SetVoltage(out.Finish, c)

		if ev.Any() && m.NumHooks() > 0 {
			m.invokeEventHooks(ev, Event{Channel: c, Frame: args.Frame, Duration: dur})
		}
	}
}

func (m *Module) invokeEventHooks(ev Events, item Event) {
	if ev.Started {
		m.InvokeHook(sim.HookCtx{Domain: m, Pos: HookPosRampStart, Item: item})
	}

	if ev.Ended {
		m.InvokeHook(sim.HookCtx{Domain: m, Pos: HookPosRampEnd, Item: item})
	}

	if ev.EOC {
		m.InvokeHook(sim.HookCtx{Domain: m, Pos: HookPosEOC, Item: item})
	}
}

// Duration returns the ramp duration computed during the last frame.
func (m *Module) Duration() float64 {
	return m.controller.Duration()
}

// CVScale returns the seconds added per volt of duration CV.
func (m *Module) CVScale() float64 {
	return m.controller.Scale()
}

// FinishedMode returns the ramp level used while idle.
func (m *Module) FinishedMode() FinishedMode {
	return m.finishedMode
}

// SetFinishedMode sets the ramp level used while idle.
func (m *Module) SetFinishedMode(mode FinishedMode) {
	m.finishedMode = mode
}

// Channel returns the processor of channel c.
func (m *Module) Channel(c int) *Channel {
	return m.channels[c]
}

// Reset returns every channel to idle.
func (m *Module) Reset() {
	for _, ch := range m.channels {
		ch.Reset()
	}
}

// SetOption implements sim.Configurable.
func (m *Module) SetOption(key, value string) error {
	if key != OptionFinishedMode {
		return fmt.Errorf("%w: %s on %s", sim.ErrUnknownOption, key, m.Name())
	}

	switch strings.ToLower(value) {
	case "low", "0":
		m.finishedMode = FinishedLow
	case "high", "10", "1":
		m.finishedMode = FinishedHigh
	default:
		return fmt.Errorf("%w: %s=%q", sim.ErrInvalidOption, key, value)
	}

	return nil
}

// DataToJSON implements sim.Persistent.
func (m *Module) DataToJSON() json.RawMessage {
	mode := int(m.finishedMode)

	data, err := json.Marshal(state{RampFinishedMode: &mode})
	if err != nil {
		panic(err)
	}

	return data
}

// DataFromJSON implements sim.Persistent. Unknown modes are ignored.
func (m *Module) DataFromJSON(data json.RawMessage) {
	var s state

	if err := json.Unmarshal(data, &s); err != nil {
		m.logger.Debug("ignoring malformed state",
			"module", m.Name(), "error", err)
		return
	}

	if s.RampFinishedMode == nil {
		return
	}

	mode := FinishedMode(*s.RampFinishedMode)
	if mode < FinishedLow || mode >= numFinishedModes {
		m.logger.Debug("ignoring unknown finished mode",
			"module", m.Name(), "mode", *s.RampFinishedMode)
		return
	}

	m.finishedMode = mode
}
