package audio

import (
	"sync"

	"github.com/gopxl/beep"

	"github.com/mtclare/Storm-Machine/constant"
	"github.com/mtclare/Storm-Machine/core"
)

// loopVoice is the single live generator of a looping layer
type loopVoice struct {
	ctrl *beep.Ctrl
	mode Mode
}

// loopController runs wind and rain.
// Idle -> Playing on the first positive intensity, Playing -> Idle at zero,
// Playing -> Playing updates gain only.
type loopController struct {
	graph   *Graph
	sources func(core.Layer) LoopSource

	mu        sync.Mutex
	active    [core.LayerCount]*loopVoice
	intensity [core.LayerCount]float64
}

func newLoopController(g *Graph, sources func(core.Layer) LoopSource) *loopController {
	return &loopController{graph: g, sources: sources}
}

// SetIntensity applies a looping layer intensity; non-looping layers are ignored
func (c *loopController) SetIntensity(layer core.Layer, value float64) {
	if !layer.IsLooping() {
		return
	}
	value = clampUnit(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.intensity[layer] = value
	if value <= 0 {
		c.stopLocked(layer)
		return
	}

	if c.active[layer] == nil {
		c.startLocked(layer, value)
	}
	c.graph.SetLayerGain(layer, value*constant.LoopGainScale)
}

// Refresh replaces a playing generator whose mode no longer matches its source
func (c *loopController) Refresh(layer core.Layer) {
	if !layer.IsLooping() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	voice := c.active[layer]
	if voice == nil || voice.mode == c.sources(layer).Mode() {
		return
	}
	c.detachLocked(layer)
	c.startLocked(layer, c.intensity[layer])
}

// StopAll stops both looping layers and zeroes their gains
func (c *loopController) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, layer := range core.Layers {
		if layer.IsLooping() {
			c.stopLocked(layer)
		}
	}
}

// Active reports whether a layer has a live generator
func (c *loopController) Active(layer core.Layer) bool {
	if !layer.IsLooping() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[layer] != nil
}

// ActiveMode returns the mode of the live generator, false when idle
func (c *loopController) ActiveMode(layer core.Layer) (Mode, bool) {
	if !layer.IsLooping() {
		return ModeSynthesized, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[layer] == nil {
		return ModeSynthesized, false
	}
	return c.active[layer].mode, true
}

func (c *loopController) startLocked(layer core.Layer, intensity float64) {
	src := c.sources(layer)
	ctrl := &beep.Ctrl{Streamer: src.Loop(intensity)}
	c.active[layer] = &loopVoice{ctrl: ctrl, mode: src.Mode()}
	c.graph.Play(layer, ctrl)
}

func (c *loopController) stopLocked(layer core.Layer) {
	c.detachLocked(layer)
	c.graph.SetLayerGain(layer, 0)
}

func (c *loopController) detachLocked(layer core.Layer) {
	if c.active[layer] == nil {
		return
	}
	c.graph.Detach(c.active[layer].ctrl)
	c.active[layer] = nil
}
