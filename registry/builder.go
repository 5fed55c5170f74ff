package registry

import "log/slog"

// Builder can be used to build a registry.
type Builder struct {
	generator Generator
	logger    *slog.Logger
}

// MakeBuilder creates a builder with a random generator and the default
// logger.
func MakeBuilder() Builder {
	return Builder{}
}

// WithGenerator sets the label generator.
func (b Builder) WithGenerator(g Generator) Builder {
	b.generator = g
	return b
}

// WithLogger sets the logger used for collision diagnostics.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// Build builds the registry.
func (b Builder) Build() *Registry {
	r := &Registry{
		values:    make(map[string]float32),
		generator: b.generator,
		logger:    b.logger,
	}

	if r.generator == nil {
		r.generator = NewRandomGenerator()
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}
