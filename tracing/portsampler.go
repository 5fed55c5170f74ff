package tracing

import (
	"github.com/littleutils/cvmod/datarecording"
	"github.com/littleutils/cvmod/sim"
)

// PortSampleTable is the table written by the PortSampler.
const PortSampleTable = "port_samples"

// PortSampleEntry is one row of the port sample table.
type PortSampleEntry struct {
	Frame   uint64
	Time    float64
	Port    string
	Channel int
	Voltage float64
}

// A PortSampler records the voltages of watched ports every interval frames,
// after the cables have been propagated.
type PortSampler struct {
	backend    datarecording.DataRecorder
	sampleRate sim.SampleRate
	interval   uint64
	ports      []*sim.Port
}

// NewPortSampler creates the sample table in backend. An interval of 0 is
// treated as 1.
func NewPortSampler(
	backend datarecording.DataRecorder,
	sampleRate sim.SampleRate,
	interval uint64,
) *PortSampler {
	if interval == 0 {
		interval = 1
	}

	backend.CreateTable(PortSampleTable, PortSampleEntry{})

	return &PortSampler{
		backend:    backend,
		sampleRate: sampleRate,
		interval:   interval,
	}
}

// Watch adds a port to the sampled set.
func (s *PortSampler) Watch(port *sim.Port) {
	s.ports = append(s.ports, port)
}

// Func samples the ports on AfterTick.
func (s *PortSampler) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterTick {
		return
	}

	args := ctx.Item.(*sim.ProcessArgs)
	if args.Frame%s.interval != 0 {
		return
	}

	for _, p := range s.ports {
		for c, v := range p.Voltages() {
			s.backend.InsertData(PortSampleTable, PortSampleEntry{
				Frame:   args.Frame,
				Time:    s.sampleRate.Time(args.Frame),
				Port:    p.FullName(),
				Channel: c,
				Voltage: float64(v),
			})
		}
	}
}
