package audio

import (
	"fmt"
	"sync"

	"github.com/gopxl/beep"

	"github.com/mtclare/Storm-Machine/constant"
	"github.com/mtclare/Storm-Machine/core"
	"github.com/mtclare/Storm-Machine/synth"
)

// LoopSource produces an endless stream for a looping layer
type LoopSource interface {
	Loop(intensity float64) beep.Streamer
	Mode() Mode
}

// OneShotSource produces a self-terminating stream for an event layer
type OneShotSource interface {
	OneShot(intensity float64) beep.Streamer
	Mode() Mode
}

// Synthesis styles for looping fallbacks
const (
	SynthesisBuffer     = "buffer"     // Fixed 2s noise loops
	SynthesisProcedural = "procedural" // Filtered oscillator loops shaped by intensity
)

// --- Sample playback ---

type sampleLoop struct {
	buf *beep.Buffer
}

func (s sampleLoop) Loop(float64) beep.Streamer {
	return beep.Loop(-1, s.buf.Streamer(0, s.buf.Len()))
}

func (sampleLoop) Mode() Mode { return ModeSample }

type sampleShot struct {
	bufs []*beep.Buffer
	rng  Rand
}

// OneShot plays a uniformly chosen buffer at intensity*SampleShotGainScale
func (s sampleShot) OneShot(intensity float64) beep.Streamer {
	buf := s.bufs[s.rng.Intn(len(s.bufs))]
	return newVolume(buf.Streamer(0, buf.Len()), intensity*constant.SampleShotGainScale)
}

func (sampleShot) Mode() Mode { return ModeSample }

// --- Synthesis ---

// fallbackLoops caches the intensity independent loop buffers
type fallbackLoops struct {
	format beep.Format
	rng    synth.Rand

	mu   sync.Mutex
	bufs [core.LayerCount]*beep.Buffer
}

func (f *fallbackLoops) get(layer core.Layer) *beep.Buffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bufs[layer] != nil {
		return f.bufs[layer]
	}

	rate := int(f.format.SampleRate)
	var raw synth.Buffer
	switch layer {
	case core.LayerWind:
		raw = synth.WindFallback(f.rng, rate)
	case core.LayerRain:
		raw = synth.RainFallback(f.rng, rate)
	default:
		panic(fmt.Sprintf("no fallback loop for %s", layer))
	}
	f.bufs[layer] = raw.ToBeep(f.format)
	return f.bufs[layer]
}

type synthLoop struct {
	layer     core.Layer
	style     string
	fallbacks *fallbackLoops
}

func (s synthLoop) Loop(intensity float64) beep.Streamer {
	if s.style != SynthesisProcedural {
		return sampleLoop{buf: s.fallbacks.get(s.layer)}.Loop(intensity)
	}

	rate := int(s.fallbacks.format.SampleRate)
	var raw synth.Buffer
	if s.layer == core.LayerWind {
		raw = synth.ProceduralWind(s.fallbacks.rng, rate, intensity)
	} else {
		raw = synth.ProceduralRain(s.fallbacks.rng, rate, intensity)
	}
	buf := raw.ToBeep(s.fallbacks.format)
	return beep.Loop(-1, buf.Streamer(0, buf.Len()))
}

func (synthLoop) Mode() Mode { return ModeSynthesized }

type synthShot struct {
	layer core.Layer
	rate  int
	rng   synth.Rand
}

func (s synthShot) OneShot(intensity float64) beep.Streamer {
	switch s.layer {
	case core.LayerThunder:
		return synth.Thunder(s.rate, intensity).Streamer()
	case core.LayerLightning:
		return synth.Lightning(s.rng, s.rate, intensity).Streamer()
	}
	panic(fmt.Sprintf("no one-shot synthesis for %s", s.layer))
}

func (synthShot) Mode() Mode { return ModeSynthesized }

// sources resolves the generator strategy for each layer from the bank
type sources struct {
	bank      *SampleBank
	rng       Rand
	style     string
	fallbacks *fallbackLoops
}

func newSources(bank *SampleBank, format beep.Format, rng Rand, style string) *sources {
	return &sources{
		bank:      bank,
		rng:       rng,
		style:     style,
		fallbacks: &fallbackLoops{format: format, rng: rng},
	}
}

func (s *sources) loop(layer core.Layer) LoopSource {
	if s.bank.Mode(layer) == ModeSample {
		return sampleLoop{buf: s.bank.Buffers(layer)[0]}
	}
	return synthLoop{layer: layer, style: s.style, fallbacks: s.fallbacks}
}

func (s *sources) oneShot(layer core.Layer) OneShotSource {
	if s.bank.Mode(layer) == ModeSample {
		return sampleShot{bufs: s.bank.Buffers(layer), rng: s.rng}
	}
	return synthShot{layer: layer, rate: int(s.fallbacks.format.SampleRate), rng: s.rng}
}
