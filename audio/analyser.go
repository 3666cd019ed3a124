package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/gopxl/beep"
	"github.com/ktye/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/mtclare/Storm-Machine/constant"
)

// analyser taps the master mix into a ring buffer and computes byte
// magnitude spectra on demand
type analyser struct {
	streamer beep.Streamer

	mu   sync.Mutex
	ring []float64
	pos  int

	fft    fft.FFT
	window []float64
}

func newAnalyser(s beep.Streamer) (*analyser, error) {
	f, err := fft.New(constant.AnalyserWindowSize)
	if err != nil {
		return nil, err
	}
	return &analyser{
		streamer: s,
		ring:     make([]float64, constant.AnalyserWindowSize),
		fft:      f,
		window:   window.Blackman(constant.AnalyserWindowSize),
	}, nil
}

// Stream passes audio through, capturing a mono mix
func (a *analyser) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = a.streamer.Stream(samples)
	a.mu.Lock()
	for i := 0; i < n; i++ {
		a.ring[a.pos] = (samples[i][0] + samples[i][1]) / 2
		a.pos = (a.pos + 1) % len(a.ring)
	}
	a.mu.Unlock()
	return n, ok
}

func (a *analyser) Err() error { return a.streamer.Err() }

// latest returns the ring contents oldest first
func (a *analyser) latest() []float64 {
	out := make([]float64, len(a.ring))
	a.mu.Lock()
	for i := range out {
		out[i] = a.ring[(a.pos+i)%len(a.ring)]
	}
	a.mu.Unlock()
	return out
}

// Snapshot returns AnalyserBinCount magnitudes scaled to [0,255].
// dB values in [AnalyserMinDecibels, AnalyserMaxDecibels] map linearly.
func (a *analyser) Snapshot() []uint8 {
	samples := a.latest()
	n := len(samples)

	buf := make([]complex128, n)
	for i, v := range samples {
		buf[i] = complex(v*a.window[i], 0)
	}
	buf = a.fft.Transform(buf)

	out := make([]uint8, constant.AnalyserBinCount)
	for k := range out {
		mag := cmplx.Abs(buf[k]) / float64(n)
		out[k] = magnitudeToByte(mag)
	}
	return out
}

func magnitudeToByte(mag float64) uint8 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := 255 * (db - constant.AnalyserMinDecibels) / (constant.AnalyserMaxDecibels - constant.AnalyserMinDecibels)
	if scaled <= 0 {
		return 0
	}
	if scaled >= 255 {
		return 255
	}
	return uint8(scaled)
}
