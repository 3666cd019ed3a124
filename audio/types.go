package audio

import (
	"errors"
	"time"

	"github.com/mtclare/Storm-Machine/core"
)

// Mode is how a layer produces sound
type Mode int

const (
	ModeSynthesized Mode = iota // Generated on the fly
	ModeSample                  // Decoded asset playback
)

func (m Mode) String() string {
	if m == ModeSample {
		return "sample"
	}
	return "synthesized"
}

// Flash is the visual cue reported by a fired event
type Flash struct {
	Layer    core.Layer
	Duration time.Duration
}

// Rand is the random source for trigger rolls and sample selection.
// *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Sentinel errors
var (
	ErrGraphConstruction = errors.New("audio graph construction failed")
	ErrNotInitialized    = errors.New("audio engine not initialized")
	ErrLayerConnected    = errors.New("layer already connected")
	ErrInvalidLayer      = errors.New("invalid layer")
	ErrBankSealed        = errors.New("sample bank sealed")
)
