package miniramp

import (
	"github.com/littleutils/cvmod/dsp/duration"
	"github.com/littleutils/cvmod/dsp/light"
	"github.com/littleutils/cvmod/dsp/pulse"
	"github.com/littleutils/cvmod/dsp/trigger"
)

// FullScale is the voltage of a high output.
const FullScale = 10.0

// EOCDuration is the length of the end of cycle pulse in seconds.
const EOCDuration = 1e-3

// FinishedMode selects the ramp voltage while no ramp is running.
type FinishedMode int

// Available finished modes.
const (
	FinishedLow FinishedMode = iota
	FinishedHigh
	numFinishedModes
)

func (m FinishedMode) String() string {
	if m == FinishedHigh {
		return "high"
	}

	return "low"
}

func (m FinishedMode) level() float32 {
	if m == FinishedHigh {
		return FullScale
	}

	return 0
}

// Inputs are the raw input voltages of one channel.
type Inputs struct {
	Trigger float32
	Reset   float32
}

// Outputs are the output voltages of one channel.
type Outputs struct {
	Ramp   float32
	Gate   float32
	EOC    float32
	Finish float32
}

// Events reports the state changes that happened during one sample.
type Events struct {
	Started bool
	Ended   bool
	EOC     bool
}

// Any reports whether any event happened.
func (e Events) Any() bool {
	return e.Started || e.Ended || e.EOC
}

// Light indexes.
const (
	RampLight = iota
	GateLight
	EOCLight
	FinishLight
	NumLights
)

// A Channel turns a trigger into a ramp, a gate, an end of cycle pulse and a
// finish gate.
type Channel struct {
	trigger trigger.SchmittTrigger
	reset   trigger.SchmittTrigger
	gate    *pulse.Generator
	eoc     *pulse.Generator
	lights  [NumLights]light.Smoothed
}

// NewChannel returns an idle channel.
func NewChannel() *Channel {
	return &Channel{
		gate: pulse.NewGenerator(),
		eoc:  pulse.NewGenerator(),
	}
}

// Reset returns the channel to idle without an end of cycle pulse.
func (c *Channel) Reset() {
	c.trigger.Reset()
	c.reset.Reset()
	c.gate.Reset()
	c.eoc.Reset()

	for i := range c.lights {
		c.lights[i].Reset()
	}
}

// Active reports whether a ramp is running.
func (c *Channel) Active() bool {
	return c.gate.Active()
}

// Process advances the channel by dt seconds. rampDuration is the ramp
// duration in seconds; it is applied to a running ramp as well. Values outside
// [0, 10] are clamped and NaN counts as 0.
func (c *Channel) Process(
	in Inputs,
	rampDuration float64,
	mode FinishedMode,
	dt float64,
) (Outputs, Events) {
	var ev Events

	rampDuration = duration.Clamp(rampDuration)

	triggered := c.trigger.ProcessVoltage(in.Trigger)

	if c.reset.ProcessVoltage(in.Reset) {
		c.gate.Reset()
		c.eoc.Reset()
	} else if triggered && rampDuration > 0 {
		c.gate.Trigger(rampDuration)
		ev.Started = true
	}

	c.gate.Duration = rampDuration

	wasActive := c.gate.Active()
	active := c.gate.Advance(dt)

	if wasActive && !active {
		c.eoc.Trigger(EOCDuration)
		ev.Ended = true
		ev.EOC = true
	}

	// The pulse is reported before it advances so that it lasts one sample
	// when the sample time equals EOCDuration.
	eocHigh := c.eoc.Active()
	c.eoc.Advance(dt)

	out := Outputs{Ramp: mode.level()}

	if active {
		out.Ramp = float32(c.gate.Fraction() * FullScale)
		out.Gate = FullScale
	} else {
		out.Finish = FullScale
	}

	if eocHigh {
		out.EOC = FullScale
	}

	c.lights[RampLight].Set(float64(out.Ramp)/FullScale, dt)
	c.lights[GateLight].Set(float64(out.Gate)/FullScale, dt)
	c.lights[EOCLight].Set(float64(out.EOC)/FullScale, dt)
	c.lights[FinishLight].Set(float64(out.Finish)/FullScale, dt)

	return out, ev
}

// Lights returns the brightness of the four indicators.
func (c *Channel) Lights() [NumLights]float64 {
	var b [NumLights]float64
	for i := range c.lights {
		b[i] = c.lights[i].Brightness()
	}

	return b
}
