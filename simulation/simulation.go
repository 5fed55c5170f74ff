// Package simulation wires a patch, its registry and the optional recording
// and monitoring services into one runnable unit.
package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/littleutils/cvmod/datarecording"
	"github.com/littleutils/cvmod/modules/teleport"
	"github.com/littleutils/cvmod/monitoring"
	"github.com/littleutils/cvmod/patch"
	"github.com/littleutils/cvmod/registry"
	"github.com/littleutils/cvmod/serialization"
	"github.com/littleutils/cvmod/sim"
	"github.com/littleutils/cvmod/tracing"
)

// A Simulation owns the engine of a patch and the services around it.
type Simulation struct {
	id     string
	logger *slog.Logger

	engine   *sim.SerialEngine
	registry *registry.Registry
	factory  *patch.Factory
	states   *serialization.Manager

	dataRecorder datarecording.DataRecorder
	outputPath   string
	eventTracer  *tracing.EventTracer

	monitor    *monitoring.Monitor
	monitorURL string
}

// ID returns the unique id of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() *sim.SerialEngine {
	return s.engine
}

// GetRegistry returns the label registry shared by the teleport modules.
func (s *Simulation) GetRegistry() *registry.Registry {
	return s.registry
}

// GetFactory returns the module factory.
func (s *Simulation) GetFactory() *patch.Factory {
	return s.factory
}

// GetDataRecorder returns the data recorder, or nil without recording.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// OutputPath returns the database file written by the recorder.
func (s *Simulation) OutputPath() string {
	return s.outputPath
}

// GetMonitor returns the monitor, or nil without monitoring.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring server.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// TeleportOuts returns the teleport consumers in processing order.
func (s *Simulation) TeleportOuts() []*teleport.Out {
	var outs []*teleport.Out

	for _, m := range s.engine.Modules() {
		if out, ok := m.(*teleport.Out); ok {
			outs = append(outs, out)
		}
	}

	return outs
}

// Run processes frames until the count is reached or ctx is done. A frames
// value of 0 runs until ctx is done. With monitoring the run shows up as a
// progress bar.
func (s *Simulation) Run(ctx context.Context, frames uint64) error {
	if s.monitor != nil {
		bar := s.monitor.CreateProgressBar("frames", frames)
		s.engine.AcceptHook(bar)

		defer s.monitor.CompleteProgressBar(bar)
	}

	s.logger.Info("running patch",
		"frames", frames, "sample_rate", float64(s.engine.SampleRate()))

	err := s.engine.Run(ctx, frames)

	s.logger.Info("run stopped",
		"frame", s.engine.CurrentFrame(), "time", s.engine.CurrentTime())

	return err
}

// LoadState restores a state file saved by SaveState.
func (s *Simulation) LoadState(path string) error {
	return s.states.Load(s.engine, path)
}

// SaveState writes the params and module data to path.
func (s *Simulation) SaveState(path string) error {
	return s.states.Save(s.engine, path)
}

// Terminate closes the recorder and releases every label.
func (s *Simulation) Terminate() {
	if s.dataRecorder != nil {
		if err := s.dataRecorder.Close(); err != nil {
			s.logger.Error("failed to close recorder", "err", err)
		}
	}

	s.engine.Finished()
	s.registry.Close()
}

func (s *Simulation) findPort(fullName string) (*sim.Port, error) {
	endpoint, err := patch.ParseEndpoint(fullName)
	if err != nil {
		return nil, err
	}

	m, ok := s.engine.Module(endpoint.Module)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sim.ErrUnknownModule, endpoint.Module)
	}

	return sim.FindPort(m, endpoint.Port)
}
