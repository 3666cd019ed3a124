package synth

import (
	"math"
	"time"
)

// Ramp selects the curve of an envelope segment
type Ramp int

const (
	RampLinear Ramp = iota
	RampExponential
)

// expFloor keeps exponential ramps away from zero, where they are undefined
const expFloor = 1e-4

// Segment ramps from the previous level to Target over Duration
type Segment struct {
	Ramp     Ramp
	Target   float64
	Duration time.Duration
}

// Envelope is an amplitude curve starting at Start and following Segments
type Envelope struct {
	Start    float64
	Segments []Segment
}

// Duration is the sum of all segment durations
func (e Envelope) Duration() time.Duration {
	var total time.Duration
	for _, s := range e.Segments {
		total += s.Duration
	}
	return total
}

// Level returns the amplitude at offset t; past the end it holds the last target
func (e Envelope) Level(t time.Duration) float64 {
	from := e.Start
	if t < 0 {
		return from
	}
	for _, s := range e.Segments {
		if t < s.Duration {
			frac := float64(t) / float64(s.Duration)
			return s.interpolate(from, frac)
		}
		t -= s.Duration
		from = s.Target
	}
	return from
}

func (s Segment) interpolate(from, frac float64) float64 {
	switch s.Ramp {
	case RampExponential:
		a := math.Max(from, expFloor)
		b := math.Max(s.Target, expFloor)
		return a * math.Pow(b/a, frac)
	default:
		return from + (s.Target-from)*frac
	}
}

// Apply multiplies buf by the envelope sampled at rate, in place
func (e Envelope) Apply(buf Buffer, rate int) {
	for i := range buf {
		t := time.Duration(float64(i) / float64(rate) * float64(time.Second))
		buf[i] *= e.Level(t)
	}
}
