package simulation

import (
	"fmt"
	"log/slog"

	"github.com/rs/xid"

	"github.com/littleutils/cvmod/datarecording"
	"github.com/littleutils/cvmod/monitoring"
	"github.com/littleutils/cvmod/patch"
	"github.com/littleutils/cvmod/registry"
	"github.com/littleutils/cvmod/serialization"
	"github.com/littleutils/cvmod/sim"
	"github.com/littleutils/cvmod/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	sampleRate     sim.SampleRate
	patch          *patch.Patch
	generator      registry.Generator
	logger         *slog.Logger
	recordOn       bool
	outputFileName string
	sampleInterval uint64
	samplePorts    []string
	monitorOn      bool
	monitorPort    int
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn: false,
	}
}

// WithSampleRate overrides the sample rate of the patch.
func (b Builder) WithSampleRate(rate sim.SampleRate) Builder {
	b.sampleRate = rate
	return b
}

// WithPatch sets the patch to build.
func (b Builder) WithPatch(p *patch.Patch) Builder {
	b.patch = p
	return b
}

// WithLabelGenerator sets the label generator of the registry.
func (b Builder) WithLabelGenerator(g registry.Generator) Builder {
	b.generator = g
	return b
}

// WithLogger sets the logger handed to every part of the simulation.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithRecording turns on the event recorder.
func (b Builder) WithRecording() Builder {
	b.recordOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithPortSampling records the voltages of the named ports ("module.port")
// every interval frames. It needs recording.
func (b Builder) WithPortSampling(interval uint64, ports ...string) Builder {
	b.sampleInterval = interval
	b.samplePorts = ports

	return b
}

// WithMonitoring turns on the monitoring server.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordOn && len(b.samplePorts) > 0 {
		panic("port sampling requires recording")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Simulation{
		id:     xid.New().String(),
		logger: logger,
	}

	regBuilder := registry.MakeBuilder().WithLogger(logger)
	if b.generator != nil {
		regBuilder = regBuilder.WithGenerator(b.generator)
	}
	s.registry = regBuilder.Build()
	s.factory = patch.NewFactory(s.registry, logger)
	s.states = serialization.NewManager(serialization.NewJSONCodec(), logger)

	s.engine = sim.MakeBuilder().
		WithSampleRate(b.resolveSampleRate()).
		WithParallelIDGenerator().
		Build()

	if b.patch != nil {
		if err := patch.Build(s.engine, s.factory, b.patch); err != nil {
			return nil, err
		}
	}

	if b.recordOn {
		if err := b.buildRecording(s); err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		if err := b.buildMonitor(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) resolveSampleRate() sim.SampleRate {
	switch {
	case b.sampleRate > 0:
		return b.sampleRate
	case b.patch != nil && b.patch.SampleRate > 0:
		return b.patch.SampleRate
	default:
		return sim.Rate44100
	}
}

func (b Builder) buildRecording(s *Simulation) error {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "cvmod_recording_" + s.id
	}

	s.dataRecorder = datarecording.New(outputPath)
	s.outputPath = outputPath + ".sqlite3"

	s.eventTracer = tracing.NewEventTracer(
		s.dataRecorder, s.engine.SampleRate(), s.logger)
	s.eventTracer.Attach(s.engine)

	if len(b.samplePorts) == 0 {
		return nil
	}

	sampler := tracing.NewPortSampler(
		s.dataRecorder, s.engine.SampleRate(), b.sampleInterval)

	for _, name := range b.samplePorts {
		port, err := s.findPort(name)
		if err != nil {
			return fmt.Errorf("port sampling: %w", err)
		}

		sampler.Watch(port)
	}

	s.engine.AcceptHook(sampler)

	return nil
}

func (b Builder) buildMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor().WithLogger(s.logger)
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterEngine(s.engine)
	s.monitor.RegisterFactory(s.factory)
	s.monitor.RegisterLabels(s.registry)

	url, err := s.monitor.StartServer()
	if err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}

	s.monitorURL = url

	return nil
}
