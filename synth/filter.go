package synth

import "math"

// FilterType selects a biquad response
type FilterType int

const (
	LowPass FilterType = iota
	HighPass
	BandPass
)

// Biquad is a second-order IIR section (RBJ audio EQ cookbook)
type Biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// NewBiquad designs a filter at cutoff Hz with resonance q for the given rate
func NewBiquad(kind FilterType, cutoff, q float64, rate int) *Biquad {
	nyquist := float64(rate) / 2
	cutoff = math.Min(math.Max(cutoff, 1), nyquist*0.99)
	if q <= 0 {
		q = math.Sqrt2 / 2
	}

	w0 := 2 * math.Pi * cutoff / float64(rate)
	cosW := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	var b0, b1, b2 float64
	switch kind {
	case HighPass:
		b0 = (1 + cosW) / 2
		b1 = -(1 + cosW)
		b2 = (1 + cosW) / 2
	case BandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	default:
		b0 = (1 - cosW) / 2
		b1 = 1 - cosW
		b2 = (1 - cosW) / 2
	}
	a0 := 1 + alpha

	return &Biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: -2 * cosW / a0,
		a2: (1 - alpha) / a0,
	}
}

// Process filters one sample
func (f *Biquad) Process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// Apply filters buf in place and returns it
func (f *Biquad) Apply(buf Buffer) Buffer {
	for i, x := range buf {
		buf[i] = f.Process(x)
	}
	return buf
}
