package audio

import (
	"fmt"
	"sync"

	"github.com/gopxl/beep"

	"github.com/mtclare/Storm-Machine/core"
	"github.com/mtclare/Storm-Machine/sink"
)

// Graph owns the mixing topology:
//
//	layer bus -> layer gain -> master mixer -> master gain -> analyser -> transport -> sink
//
// Gains are atomic; bus edits and transport changes hold the sink lock.
type Graph struct {
	format beep.Format

	buses     [core.LayerCount]*beep.Mixer
	gains     [core.LayerCount]*gainNode
	connected [core.LayerCount]bool

	master     *beep.Mixer
	masterGain *gainNode
	analyser   *analyser
	transport  *beep.Ctrl

	mu   sync.Mutex // Guards sink and connected
	sink sink.Sink
}

// NewGraph builds the master chain; the transport starts suspended
func NewGraph(format beep.Format, masterVolume float64) (*Graph, error) {
	g := &Graph{
		format: format,
		master: &beep.Mixer{},
	}
	g.masterGain = newGainNode(g.master, clampUnit(masterVolume))

	a, err := newAnalyser(g.masterGain)
	if err != nil {
		return nil, fmt.Errorf("%w: analyser: %v", ErrGraphConstruction, err)
	}
	g.analyser = a
	g.transport = &beep.Ctrl{Streamer: a, Paused: true}
	return g, nil
}

// Root returns the streamer a sink should pull
func (g *Graph) Root() beep.Streamer {
	return g.transport
}

// Attach binds the graph to an opened sink
func (g *Graph) Attach(s sink.Sink) {
	g.mu.Lock()
	g.sink = s
	g.mu.Unlock()
}

// ConnectLayer wires a layer's bus through its gain into the master mix.
// Each layer connects once.
func (g *Graph) ConnectLayer(layer core.Layer) error {
	if !layer.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLayer, int(layer))
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.connected[layer] {
		return fmt.Errorf("%w: %s", ErrLayerConnected, layer)
	}

	bus := &beep.Mixer{}
	gain := newGainNode(bus, 0)

	g.withSinkLocked(func() {
		g.master.Add(gain)
	})
	g.buses[layer] = bus
	g.gains[layer] = gain
	g.connected[layer] = true
	return nil
}

// SetLayerGain stores a layer gain; unconnected layers are ignored
func (g *Graph) SetLayerGain(layer core.Layer, gain float64) {
	if !layer.Valid() || g.gains[layer] == nil {
		return
	}
	g.gains[layer].Set(gain)
}

// LayerGain returns the current layer gain
func (g *Graph) LayerGain(layer core.Layer) float64 {
	if !layer.Valid() || g.gains[layer] == nil {
		return 0
	}
	return g.gains[layer].Get()
}

// SetMasterVolume scales the final mix, clamped to [0,1]
func (g *Graph) SetMasterVolume(v float64) {
	g.masterGain.Set(clampUnit(v))
}

// MasterVolume returns the master gain
func (g *Graph) MasterVolume() float64 {
	return g.masterGain.Get()
}

// Play adds s to a layer bus; it is removed when it drains
func (g *Graph) Play(layer core.Layer, s beep.Streamer) {
	if !layer.Valid() || g.buses[layer] == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.withSinkLocked(func() {
		g.buses[layer].Add(s)
	})
}

// Detach stops ctrl from the render side; the bus drops it on the next pass
func (g *Graph) Detach(ctrl *beep.Ctrl) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.withSinkLocked(func() {
		ctrl.Streamer = nil
	})
}

// Voices returns the number of streamers on a layer bus
func (g *Graph) Voices(layer core.Layer) int {
	if !layer.Valid() || g.buses[layer] == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	g.withSinkLocked(func() {
		n = g.buses[layer].Len()
	})
	return n
}

// SetSuspended pauses or resumes the transport
func (g *Graph) SetSuspended(suspended bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.withSinkLocked(func() {
		g.transport.Paused = suspended
	})
}

// Suspended reports whether the transport is paused
func (g *Graph) Suspended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	suspended := true
	g.withSinkLocked(func() {
		suspended = g.transport.Paused
	})
	return suspended
}

// Snapshot returns the current spectrum of the master mix
func (g *Graph) Snapshot() []uint8 {
	return g.analyser.Snapshot()
}

// Close clears every bus and releases the sink
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.withSinkLocked(func() {
		for _, bus := range g.buses {
			if bus != nil {
				bus.Clear()
			}
		}
		g.transport.Paused = true
	})

	if g.sink == nil {
		return nil
	}
	err := g.sink.Close()
	g.sink = nil
	return err
}

// withSinkLocked runs fn holding the sink's render lock, if attached.
// Callers hold g.mu.
func (g *Graph) withSinkLocked(fn func()) {
	if g.sink != nil {
		g.sink.Lock()
		defer g.sink.Unlock()
	}
	fn()
}
