// Package duration computes voltage-controlled pulse durations.
package duration

import "math"

// Mode selects how the manual knob and the CV amount are interpreted.
type Mode int

// Available modes.
const (
	Linear Mode = iota
	Logarithmic
)

// Limits of the duration range in seconds, and of the decade range used by
// the logarithmic mode.
const (
	MinDuration = 0.0
	MaxDuration = 10.0

	MinExponent = -3.0
	MaxExponent = 1.0

	KnobMin = 0.0
	KnobMax = 10.0
)

// ModeFromSwitch maps a two-position switch value to a mode. Values below 0.5
// select the linear mode.
func ModeFromSwitch(v float64) Mode {
	if v < 0.5 {
		return Linear
	}

	return Logarithmic
}

// A Controller turns a knob value, a CV amount and a control voltage into a
// duration. It keeps the intermediate values so that displays can show them.
type Controller struct {
	base  float64
	scale float64
	value float64
}

// NewController returns a controller whose duration is initialBase until the
// first call to Update.
func NewController(initialBase float64) *Controller {
	c := &Controller{}
	c.base = Clamp(initialBase)
	c.value = c.base

	return c
}

// Update recomputes the duration. knob is expected in [0, 10], amount in
// [-1, 1]; both are clamped. A non-finite cv is treated as 0 V.
func (c *Controller) Update(knob, amount, cv float64, mode Mode) float64 {
	knob = clampFinite(knob, KnobMin, KnobMax, KnobMin)
	amount = clampFinite(amount, -1, 1, 0)

	if math.IsNaN(cv) || math.IsInf(cv, 0) {
		cv = 0
	}

	switch mode {
	case Linear:
		c.scale = amount
		c.base = knob
	default:
		exponent := rescale(knob, KnobMin, KnobMax, MinExponent, MaxExponent)
		cvExponent := rescale(math.Abs(amount), 0, 1, MinExponent, MaxExponent)

		// One decade down so that 10 V of CV spans 100% of the scale.
		c.scale = math.Pow(10, cvExponent-1) * signum(amount)
		c.base = math.Pow(10, exponent)
	}

	c.value = Clamp(c.base + cv*c.scale)

	return c.value
}

// Duration returns the last computed duration in seconds.
func (c *Controller) Duration() float64 {
	return c.value
}

// Base returns the duration without CV.
func (c *Controller) Base() float64 {
	return c.base
}

// Scale returns the seconds of duration added per volt of CV.
func (c *Controller) Scale() float64 {
	return c.scale
}

// Clamp limits d to [MinDuration, MaxDuration]. NaN maps to MinDuration.
func Clamp(d float64) float64 {
	return clampFinite(d, MinDuration, MaxDuration, MinDuration)
}

func clampFinite(v, lo, hi, nan float64) float64 {
	switch {
	case math.IsNaN(v):
		return nan
	case v < lo:
		return lo
	case v > hi:
		return hi
	}

	return v
}

func rescale(x, xMin, xMax, yMin, yMax float64) float64 {
	return yMin + (x-xMin)/(xMax-xMin)*(yMax-yMin)
}

func signum(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}

	return 0
}
