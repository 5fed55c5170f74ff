package sim

import "math"

// MaxChannels is the largest polyphony a port can carry.
const MaxChannels = 16

// PortDirection tells inputs and outputs apart.
type PortDirection int

// Port directions.
const (
	Input PortDirection = iota
	Output
)

func (d PortDirection) String() string {
	if d == Output {
		return "output"
	}

	return "input"
}

// A Port carries one voltage per polyphony channel.
//
// Ports are only touched by the engine goroutine. Other goroutines read them
// through Engine.Do.
type Port struct {
	name      string
	owner     string
	direction PortDirection
	channels  int
	connected bool
	voltages  [MaxChannels]float32
}

// NewPort creates a disconnected port with no channels.
func NewPort(owner, name string, direction PortDirection) *Port {
	return &Port{
		name:      name,
		owner:     owner,
		direction: direction,
	}
}

// Name returns the name of the port without its owner.
func (p *Port) Name() string {
	return p.name
}

// FullName returns "<module>.<port>".
func (p *Port) FullName() string {
	return p.owner + "." + p.name
}

// Direction returns whether the port is an input or an output.
func (p *Port) Direction() PortDirection {
	return p.direction
}

// IsConnected reports whether a cable is plugged into the port.
func (p *Port) IsConnected() bool {
	return p.connected
}

// Channels returns the number of active channels. Disconnected inputs have
// zero channels.
func (p *Port) Channels() int {
	return p.channels
}

// SetChannels sets the number of active channels, clamped to
// [0, MaxChannels]. Voltages of dropped channels are zeroed.
func (p *Port) SetChannels(n int) {
	if n < 0 {
		n = 0
	}

	if n > MaxChannels {
		n = MaxChannels
	}

	for c := n; c < p.channels; c++ {
		p.voltages[c] = 0
	}

	p.channels = n
}

// Voltage returns the voltage of channel 0.
func (p *Port) Voltage() float32 {
	return p.voltages[0]
}

// GetVoltage returns the voltage of channel c, or 0 if c is out of range.
func (p *Port) GetVoltage(c int) float32 {
	if c < 0 || c >= MaxChannels {
		return 0
	}

	return p.voltages[c]
}

// SetVoltage writes v into channel c. Out of range channels are ignored and
// non-finite voltages are stored as 0.
func (p *Port) SetVoltage(v float32, c int) {
	if c < 0 || c >= MaxChannels {
		return
	}

	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		v = 0
	}

	p.voltages[c] = v
}

// Voltages returns a copy of the active channel voltages.
func (p *Port) Voltages() []float32 {
	out := make([]float32, p.channels)
	copy(out, p.voltages[:p.channels])

	return out
}

func (p *Port) setConnected(connected bool) {
	p.connected = connected
	if !connected && p.direction == Input {
		p.SetChannels(0)
	}
}
