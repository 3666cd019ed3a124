// Package synth generates raw storm signals: noise and tone buffers, the
// looping fallbacks and envelope-shaped thunder and lightning one-shots.
//
// Every generator is a pure function of its arguments. Randomness comes from
// the caller's Rand so output is reproducible under a seeded source.
package synth

import (
	"math"
	"time"
)

// Rand is the uniform source consumed by noise generators; *rand.Rand satisfies it
type Rand interface {
	Float64() float64
}

// Waveform types
const (
	WaveSine = iota
	WaveSaw
)

// Buffer is mono float64 samples at unity gain
type Buffer []float64

// Samples converts a duration to a sample count at rate
func Samples(d time.Duration, rate int) int {
	if d <= 0 || rate <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * float64(rate)))
}

// Oscillator renders a periodic waveform of the given length
func Oscillator(waveType int, freq float64, samples, rate int) Buffer {
	buf := make(Buffer, samples)
	phase := 0.0
	phaseInc := freq / float64(rate)

	for i := range buf {
		switch waveType {
		case WaveSine:
			buf[i] = math.Sin(2 * math.Pi * phase)
		case WaveSaw:
			buf[i] = 2.0 * (phase - 0.5)
		}

		phase += phaseInc
		phase -= math.Floor(phase)
	}
	return buf
}

// WhiteNoise renders i.i.d. uniform samples in [-1, 1]
func WhiteNoise(rng Rand, rate int, d time.Duration) Buffer {
	buf := make(Buffer, Samples(d, rate))
	for i := range buf {
		buf[i] = rng.Float64()*2 - 1
	}
	return buf
}

// Scale multiplies every sample by g in place and returns buf
func (b Buffer) Scale(g float64) Buffer {
	for i := range b {
		b[i] *= g
	}
	return b
}

// Mix adds src scaled by g into b, extending b when src is longer
func (b Buffer) Mix(src Buffer, g float64) Buffer {
	if len(src) > len(b) {
		extended := make(Buffer, len(src))
		copy(extended, b)
		b = extended
	}
	for i := range src {
		b[i] += src[i] * g
	}
	return b
}

// Peak returns the largest absolute sample
func (b Buffer) Peak() float64 {
	peak := 0.0
	for _, v := range b {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// Duration returns the playback length at rate
func (b Buffer) Duration(rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b)) / float64(rate) * float64(time.Second))
}
