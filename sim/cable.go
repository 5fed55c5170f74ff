package sim

import "fmt"

// A Cable copies an output port into an input port once per frame.
type Cable struct {
	From *Port
	To   *Port
}

// NewCable validates the port directions and plugs both ends.
func NewCable(from, to *Port) (*Cable, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("cable needs two ports")
	}

	if from.Direction() != Output {
		return nil, fmt.Errorf("cable source %s is not an output", from.FullName())
	}

	if to.Direction() != Input {
		return nil, fmt.Errorf("cable destination %s is not an input", to.FullName())
	}

	if to.IsConnected() {
		return nil, fmt.Errorf("input %s already has a cable", to.FullName())
	}

	c := &Cable{From: from, To: to}
	from.setConnected(true)
	to.setConnected(true)

	return c, nil
}

// Transfer copies the current channels and voltages.
func (c *Cable) Transfer() {
	n := c.From.Channels()
	c.To.SetChannels(n)
	copy(c.To.voltages[:n], c.From.voltages[:n])
}

func (c *Cable) unplug() {
	c.To.setConnected(false)
}
