package sim

import (
	"math"
	"sync/atomic"
)

// A Param is a knob or switch of a module. Its value may be written from any
// goroutine while the engine reads it during processing.
type Param struct {
	name         string
	min, max     float64
	defaultValue float64
	bits         atomic.Uint64
}

// NewParam creates a param whose value starts at defaultValue.
func NewParam(name string, min, max, defaultValue float64) *Param {
	p := &Param{
		name:         name,
		min:          min,
		max:          max,
		defaultValue: defaultValue,
	}
	p.SetValue(defaultValue)

	return p
}

// Name returns the name of the param.
func (p *Param) Name() string {
	return p.name
}

// Min returns the lowest accepted value.
func (p *Param) Min() float64 {
	return p.min
}

// Max returns the highest accepted value.
func (p *Param) Max() float64 {
	return p.max
}

// Default returns the value restored by Reset.
func (p *Param) Default() float64 {
	return p.defaultValue
}

// Value returns the current value.
func (p *Param) Value() float64 {
	return math.Float64frombits(p.bits.Load())
}

// SetValue clamps v into the param range and stores it. NaN is ignored.
func (p *Param) SetValue(v float64) {
	if math.IsNaN(v) {
		return
	}

	v = math.Max(p.min, math.Min(p.max, v))
	p.bits.Store(math.Float64bits(v))
}

// Reset restores the default value.
func (p *Param) Reset() {
	p.SetValue(p.defaultValue)
}
