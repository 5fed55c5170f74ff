package sim

// Builder can be used to build an engine.
type Builder struct {
	sampleRate  SampleRate
	parallelIDs bool
}

// MakeBuilder creates a new builder running at 48 kHz.
func MakeBuilder() Builder {
	return Builder{
		sampleRate: Rate48000,
	}
}

// WithSampleRate sets the sample rate.
func (b Builder) WithSampleRate(rate SampleRate) Builder {
	b.sampleRate = rate
	return b
}

// WithParallelIDGenerator makes generated module names globally unique
// instead of sequential.
func (b Builder) WithParallelIDGenerator() Builder {
	b.parallelIDs = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.sampleRate <= 0 {
		panic("sample rate must be positive")
	}
}

// Build builds the engine.
func (b Builder) Build() *SerialEngine {
	b.parametersMustBeValid()

	e := NewSerialEngine(b.sampleRate)
	if b.parallelIDs {
		e.idGenerator = NewParallelIDGenerator()
	}

	return e
}
