// Package pulse provides a retriggerable timed pulse.
package pulse

// A Generator is high from the moment it is triggered until its elapsed time
// reaches its duration.
//
// Duration is exported because hosts update it every sample while a pulse is
// running. The active pulse is measured against whatever the duration is at
// the time Advance is called.
type Generator struct {
	Elapsed  float64
	Duration float64
	finished bool
}

// NewGenerator returns a generator in the finished state.
func NewGenerator() *Generator {
	g := &Generator{}
	g.Reset()

	return g
}

// Reset drops any running pulse immediately.
func (g *Generator) Reset() {
	g.Elapsed = 0
	g.Duration = 0
	g.finished = true
}

// Trigger starts a new pulse. A running pulse is restarted with the new
// duration, even if the new duration is shorter.
func (g *Generator) Trigger(duration float64) {
	g.Elapsed = 0
	g.Duration = duration
	g.finished = false
}

// Advance moves time forward by dt and reports whether the pulse is still
// high after the update.
func (g *Generator) Advance(dt float64) bool {
	g.Elapsed += dt
	if !g.finished {
		g.finished = g.Elapsed >= g.Duration
	}

	return !g.finished
}

// Active reports whether the pulse is high.
func (g *Generator) Active() bool {
	return !g.finished
}

// Finished reports whether the pulse is low.
func (g *Generator) Finished() bool {
	return g.finished
}

// Fraction returns the elapsed share of the current duration, clamped to
// [0, 1]. A finished pulse or a zero duration reports 0.
func (g *Generator) Fraction() float64 {
	if g.finished || g.Duration <= 0 {
		return 0
	}

	f := g.Elapsed / g.Duration
	if f > 1 {
		return 1
	}

	if f < 0 {
		return 0
	}

	return f
}
