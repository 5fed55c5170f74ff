// Package light models indicator brightness for panel lights.
package light

// Lambda is the decay rate of a light in 1/s.
const Lambda = 30.0

// Smoothed is a brightness value that jumps up instantly and decays towards
// lower targets with a first-order filter.
type Smoothed struct {
	value float64
}

// Set moves the brightness towards target over dt seconds.
func (s *Smoothed) Set(target, dt float64) {
	if target > s.value {
		s.value = target
		return
	}

	k := Lambda * dt
	if k > 1 {
		k = 1
	}

	s.value += (target - s.value) * k
}

// Brightness returns the current brightness.
func (s *Smoothed) Brightness() float64 {
	return s.value
}

// Reset turns the light off.
func (s *Smoothed) Reset() {
	s.value = 0
}
