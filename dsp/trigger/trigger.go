// Package trigger converts continuous control signals into edge events.
package trigger

// Trigger inputs treat 0.1 V and below as low and 2 V and above as high.
const (
	LowThreshold  float32 = 0.1
	HighThreshold float32 = 2.0
)

// Rescale maps x from the range [xMin, xMax] to [yMin, yMax]. The result is
// not clamped.
func Rescale(x, xMin, xMax, yMin, yMax float32) float32 {
	return yMin + (x-xMin)/(xMax-xMin)*(yMax-yMin)
}

// A SchmittTrigger is a hysteresis comparator. It goes high when its input
// reaches 1 and goes low again only when the input falls to 0.
type SchmittTrigger struct {
	high bool
}

// Reset forces the trigger into the low state.
func (t *SchmittTrigger) Reset() {
	t.high = false
}

// IsHigh reports the current comparator state.
func (t *SchmittTrigger) IsHigh() bool {
	return t.high
}

// Process feeds one sample of a signal that is already scaled so that 0 is the
// low threshold and 1 the high threshold. It returns true only on the sample
// where the state flips from low to high.
func (t *SchmittTrigger) Process(in float32) bool {
	if t.high {
		if in <= 0 {
			t.high = false
		}

		return false
	}

	if in >= 1 {
		t.high = true
		return true
	}

	return false
}

// ProcessVoltage rescales a raw trigger voltage from the
// [LowThreshold, HighThreshold] window and processes it. NaN inputs never
// change the state.
func (t *SchmittTrigger) ProcessVoltage(v float32) bool {
	return t.Process(Rescale(v, LowThreshold, HighThreshold, 0, 1))
}
