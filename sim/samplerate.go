package sim

import (
	"log"
	"math"
)

// SampleRate is the number of frames processed per second.
type SampleRate float64

// Common sample rates.
const (
	Rate44100 SampleRate = 44100
	Rate48000 SampleRate = 48000
	Rate96000 SampleRate = 96000
)

// SampleTime returns the time between two consecutive frames in seconds.
func (r SampleRate) SampleTime() float64 {
	if r <= 0 || math.IsNaN(float64(r)) || math.IsInf(float64(r), 0) {
		log.Panicf("invalid sample rate %v", float64(r))
	}

	return 1.0 / float64(r)
}

// Frames converts a duration in seconds to the number of whole frames it
// covers, rounding to the nearest frame.
func (r SampleRate) Frames(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}

	return uint64(math.Round(seconds * float64(r)))
}

// Time returns the time at which frame starts.
func (r SampleRate) Time(frame uint64) float64 {
	return float64(frame) * r.SampleTime()
}

// ProcessArgs is handed to every module once per frame.
type ProcessArgs struct {
	SampleRate SampleRate
	SampleTime float64
	Frame      uint64
}
