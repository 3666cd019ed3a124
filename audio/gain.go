package audio

import (
	"math"
	"sync/atomic"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// gainNode scales a stream by a linear gain.
// Set is a lock-free store; the render path reads it once per buffer.
type gainNode struct {
	streamer beep.Streamer
	bits     atomic.Uint64
}

func newGainNode(s beep.Streamer, gain float64) *gainNode {
	g := &gainNode{streamer: s}
	g.Set(gain)
	return g
}

// Set stores a new gain, negative values clamp to 0
func (g *gainNode) Set(gain float64) {
	if gain < 0 || math.IsNaN(gain) {
		gain = 0
	}
	g.bits.Store(math.Float64bits(gain))
}

// Get returns the current gain
func (g *gainNode) Get() float64 {
	return math.Float64frombits(g.bits.Load())
}

func (g *gainNode) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = g.streamer.Stream(samples)
	gain := g.Get()
	if gain == 1 {
		return n, ok
	}
	for i := 0; i < n; i++ {
		samples[i][0] *= gain
		samples[i][1] *= gain
	}
	return n, ok
}

func (g *gainNode) Err() error { return g.streamer.Err() }

// Helper to create a volume effect safely
// math.Log2(0) is -Inf, so we handle 0 volume by making it silent
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
