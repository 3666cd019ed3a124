package audio

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gopxl/beep"

	"github.com/mtclare/Storm-Machine/clock"
	"github.com/mtclare/Storm-Machine/constant"
	"github.com/mtclare/Storm-Machine/core"
)

// eventSpec holds the fixed gating parameters of an event layer
type eventSpec struct {
	probability float64
	cooldown    time.Duration
	flash       time.Duration
}

var eventSpecs = map[core.Layer]eventSpec{
	core.LayerThunder: {
		probability: constant.ThunderRollProbability,
		cooldown:    constant.ThunderCooldown,
		flash:       constant.ThunderFlashDuration,
	},
	core.LayerLightning: {
		probability: constant.LightningRollProbability,
		cooldown:    constant.LightningCooldown,
		flash:       constant.LightningFlashDuration,
	},
}

// eventEngine fires thunder and lightning one-shots with cooldown and
// probability gating
type eventEngine struct {
	graph   *Graph
	clock   clock.Provider
	rng     Rand
	sources func(core.Layer) OneShotSource
	logger  *log.Logger

	mu    sync.Mutex
	last  [core.LayerCount]time.Time
	fired [core.LayerCount]bool
}

func newEventEngine(g *Graph, clk clock.Provider, rng Rand, sources func(core.Layer) OneShotSource, logger *log.Logger) *eventEngine {
	return &eventEngine{
		graph:   g,
		clock:   clk,
		rng:     rng,
		sources: sources,
		logger:  logger,
	}
}

// RollTrigger fires when intensity exceeds the floor and a uniform draw
// lands under intensity times the layer probability
func (e *eventEngine) RollTrigger(layer core.Layer, intensity float64) (Flash, bool) {
	spec, ok := eventSpecs[layer]
	if !ok || intensity <= constant.EventIntensityFloor {
		return Flash{}, false
	}
	if e.rng.Float64() >= intensity*spec.probability {
		return Flash{}, false
	}
	return e.Trigger(layer, intensity)
}

// Trigger plays one one-shot unless the layer is cooling down.
// A failure while building the sound keeps the cooldown stamp and reports not fired.
func (e *eventEngine) Trigger(layer core.Layer, intensity float64) (Flash, bool) {
	spec, ok := eventSpecs[layer]
	if !ok {
		return Flash{}, false
	}
	intensity = clampUnit(intensity)

	e.mu.Lock()
	now := e.clock.Now()
	if e.fired[layer] && now.Sub(e.last[layer]) < spec.cooldown {
		e.mu.Unlock()
		return Flash{}, false
	}
	e.last[layer] = now
	e.fired[layer] = true
	e.mu.Unlock()

	s, err := e.build(layer, intensity)
	if err != nil {
		e.logger.Printf("[audio] %s trigger failed: %v", layer, err)
		return Flash{}, false
	}
	e.graph.Play(layer, s)
	return Flash{Layer: layer, Duration: spec.flash}, true
}

// build creates the one-shot, recovering any panic into an error
func (e *eventEngine) build(layer core.Layer, intensity float64) (s beep.Streamer, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	s = e.sources(layer).OneShot(intensity)
	if s == nil {
		return nil, fmt.Errorf("nil one-shot")
	}
	return s, nil
}

// SetAmbientLevel sets an event layer's gain directly
func (e *eventEngine) SetAmbientLevel(layer core.Layer, level float64) {
	if !layer.IsEvent() {
		return
	}
	e.graph.SetLayerGain(layer, clampUnit(level))
}

// LastTrigger returns the time of the last accepted trigger
func (e *eventEngine) LastTrigger(layer core.Layer) time.Time {
	if !layer.Valid() {
		return time.Time{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last[layer]
}
