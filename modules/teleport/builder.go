package teleport

import (
	"fmt"
	"log/slog"

	"github.com/littleutils/cvmod/sim"
)

// Builder can build teleport modules that share a registry.
type Builder struct {
	registry Registry
	logger   *slog.Logger
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithRegistry sets the registry shared by the modules.
func (b Builder) WithRegistry(r Registry) Builder {
	b.registry = r
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

func (b Builder) mustBeValid() {
	if b.registry == nil {
		panic("teleport modules need a registry")
	}
}

func (b Builder) loggerOrDefault() *slog.Logger {
	if b.logger == nil {
		return slog.Default()
	}

	return b.logger
}

// BuildIn creates an input module that owns a fresh label.
func (b Builder) BuildIn(name string) (*In, error) {
	b.mustBeValid()

	m := &In{
		ModuleBase: sim.NewModuleBase(name, InModel),
		registry:   b.registry,
		logger:     b.loggerOrDefault(),
	}
	m.input = m.AddInput(InputIn)

	label, err := b.registry.InsertUnique(0)
	if err != nil {
		return nil, fmt.Errorf("teleport %s: %w", name, err)
	}

	m.label = label

	return m, nil
}

// BuildOut creates an output module bound to the registry's default label.
func (b Builder) BuildOut(name string) *Out {
	b.mustBeValid()

	m := &Out{
		ModuleBase: sim.NewModuleBase(name, OutModel),
		registry:   b.registry,
		logger:     b.loggerOrDefault(),
	}
	m.output = m.AddOutput(OutputOut)
	m.label = b.registry.DefaultLabel()

	return m
}
