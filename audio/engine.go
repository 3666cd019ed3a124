package audio

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/mtclare/Storm-Machine/asset"
	"github.com/mtclare/Storm-Machine/clock"
	"github.com/mtclare/Storm-Machine/core"
	"github.com/mtclare/Storm-Machine/sink"
)

// Engine is the storm soundscape: graph, sample bank, looping layers and
// event layers behind one facade. Steady-state calls never panic.
type Engine struct {
	config *Config
	logger *log.Logger
	clock  clock.Provider
	rng    *lockedRand
	sink   sink.Sink // Injected sink, nil selects by config.Backend
	opened bool      // sink was opened by name and is dropped on Close

	bank    *SampleBank
	sources *sources

	mu     sync.Mutex // Protects graph, loops, events
	graph  *Graph
	loops  *loopController
	events *eventEngine

	levels      [core.LayerCount]atomic.Uint64
	initialized atomic.Bool
	running     atomic.Bool
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger routes engine diagnostics
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces the cooldown clock
func WithClock(c clock.Provider) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRand replaces the random source for rolls, sample picks and noise
func WithRand(r Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = newLockedRand(r)
		}
	}
}

// WithSink uses s instead of opening a backend by name
func WithSink(s sink.Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// NewEngine creates an uninitialized engine
func NewEngine(cfg *Config, opts ...Option) *Engine {
	config := DefaultConfig()
	if cfg != nil {
		config = cfg
	}

	e := &Engine{
		config: config,
		logger: log.New(io.Discard, "", 0),
		clock:  clock.System{},
		bank:   NewSampleBank(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = newLockedRand(nil)
	}
	e.sources = newSources(e.bank, config.Format(), e.rng, config.Synthesis)

	for layer, v := range config.LayerLevels() {
		e.storeLevel(core.Layer(layer), v)
	}
	return e
}

// Initialize builds the graph, connects every layer and opens the sink.
// The engine stays suspended until Start. Repeat calls are no-ops.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized.Load() {
		return nil
	}

	format := e.config.Format()
	g, err := NewGraph(format, e.config.MasterVolume)
	if err != nil {
		return err
	}
	for _, layer := range core.Layers {
		if err := g.ConnectLayer(layer); err != nil {
			return fmt.Errorf("%w: %v", ErrGraphConstruction, err)
		}
	}

	s := e.sink
	opened := s == nil
	if opened {
		s, err = sink.Open(e.config.Backend, format, g.Root(), e.logger)
	} else {
		err = s.Open(format, g.Root())
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGraphConstruction, err)
	}
	g.Attach(s)
	e.sink = s
	e.opened = opened

	e.graph = g
	e.loops = newLoopController(g, e.sources.loop)
	e.events = newEventEngine(g, e.clock, e.rng, e.sources.oneShot, e.logger)
	e.initialized.Store(true)

	e.logger.Printf("[audio] initialized: %s at %d Hz", s.Name(), format.SampleRate)
	return nil
}

// Start resumes the transport and restores the remembered looping levels.
// Idempotent.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized.Load() {
		return ErrNotInitialized
	}
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}
	e.graph.SetSuspended(false)
	for _, layer := range core.Layers {
		e.applyLocked(layer, e.Level(layer))
	}
	return nil
}

// Stop halts the looping layers. Event gains are kept so one-shots in
// flight finish. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.loops.StopAll()
}

// Close stops playback, detaches everything and releases the sink
func (e *Engine) Close() error {
	e.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized.CompareAndSwap(true, false) {
		return nil
	}
	e.loops.StopAll()
	err := e.graph.Close()
	if e.opened {
		e.sink = nil
		e.opened = false
	}
	e.logger.Printf("[audio] closed")
	return err
}

// IsInitialized reports whether the graph is built
func (e *Engine) IsInitialized() bool {
	return e.initialized.Load()
}

// IsRunning reports whether the engine is playing
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// SetSoundLevel records a layer level and, while running, dispatches it:
// looping layers start, retune or stop their generator, event layers set
// their gain. Levels recorded while stopped apply on Start.
func (e *Engine) SetSoundLevel(layer core.Layer, level float64) {
	if !layer.Valid() {
		return
	}
	level = clampUnit(level)
	e.storeLevel(layer, level)

	if !e.running.Load() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running.Load() {
		return
	}
	e.guard("set level", func() {
		e.applyLocked(layer, level)
	})
}

func (e *Engine) applyLocked(layer core.Layer, level float64) {
	if e.loops == nil {
		return
	}
	switch {
	case layer.IsLooping():
		e.loops.SetIntensity(layer, level)
	case layer.IsEvent():
		e.events.SetAmbientLevel(layer, level)
	}
}

// Level returns the last level set for a layer
func (e *Engine) Level(layer core.Layer) float64 {
	if !layer.Valid() {
		return 0
	}
	return math.Float64frombits(e.levels[layer].Load())
}

func (e *Engine) storeLevel(layer core.Layer, v float64) {
	e.levels[layer].Store(math.Float64bits(v))
}

// TriggerThunder fires a thunder one-shot, subject to cooldown.
// Nothing fires unless the engine is running.
func (e *Engine) TriggerThunder(intensity float64) (Flash, bool) {
	return e.trigger(core.LayerThunder, intensity)
}

// TriggerLightning fires a lightning one-shot, subject to cooldown
func (e *Engine) TriggerLightning(intensity float64) (Flash, bool) {
	return e.trigger(core.LayerLightning, intensity)
}

func (e *Engine) trigger(layer core.Layer, intensity float64) (flash Flash, fired bool) {
	events := e.eventEngine()
	if events == nil {
		return Flash{}, false
	}
	e.guard("trigger", func() {
		flash, fired = events.Trigger(layer, intensity)
	})
	return flash, fired
}

// RollTrigger draws from the engine's random source and fires on success
func (e *Engine) RollTrigger(layer core.Layer, intensity float64) (flash Flash, fired bool) {
	events := e.eventEngine()
	if events == nil {
		return Flash{}, false
	}
	e.guard("roll", func() {
		flash, fired = events.RollTrigger(layer, intensity)
	})
	return flash, fired
}

// eventEngine returns the event engine while running, nil otherwise
func (e *Engine) eventEngine() *eventEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized.Load() || !e.running.Load() {
		return nil
	}
	return e.events
}

// SetMasterVolume scales the final mix, clamped to [0,1]
func (e *Engine) SetMasterVolume(v float64) {
	e.config.MasterVolume = clampUnit(v)
	if g := e.currentGraph(); g != nil {
		g.SetMasterVolume(v)
	}
}

// MasterVolume returns the master gain
func (e *Engine) MasterVolume() float64 {
	if g := e.currentGraph(); g != nil {
		return g.MasterVolume()
	}
	return e.config.MasterVolume
}

// FrequencySnapshot returns the current byte spectrum of the mix, or
// false when the engine is not initialized or not running
func (e *Engine) FrequencySnapshot() ([]uint8, bool) {
	if !e.running.Load() {
		return nil, false
	}
	g := e.currentGraph()
	if g == nil {
		return nil, false
	}
	return g.Snapshot(), true
}

func (e *Engine) currentGraph() *Graph {
	if !e.initialized.Load() {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph
}

// Active reports whether a looping layer has a live generator
func (e *Engine) Active(layer core.Layer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loops == nil {
		return false
	}
	return e.loops.Active(layer)
}

// LayerGain returns the gain currently applied to a layer
func (e *Engine) LayerGain(layer core.Layer) float64 {
	if g := e.currentGraph(); g != nil {
		return g.LayerGain(layer)
	}
	return 0
}

// Mode returns how a layer currently produces sound
func (e *Engine) Mode(layer core.Layer) Mode {
	return e.bank.Mode(layer)
}

// Bank exposes the sample bank
func (e *Engine) Bank() *SampleBank {
	return e.bank
}

// Sink returns the opened sink, nil before Initialize
func (e *Engine) Sink() sink.Sink {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized.Load() {
		return nil
	}
	return e.sink
}

// LoadSummary reports a finished load
type LoadSummary struct {
	asset.Summary
	Modes [core.LayerCount]Mode
}

func (s LoadSummary) String() string {
	return s.Summary.String()
}

// LoadSamples fetches the manifest into the bank and seals it. Looping
// layers playing a generator of the wrong mode are restarted.
func (e *Engine) LoadSamples(ctx context.Context, m asset.Manifest) LoadSummary {
	loader := asset.NewLoader(e.config.Format(),
		asset.WithWorkers(e.config.LoaderWorkers),
		asset.WithLogger(e.logger),
	)
	results := loader.Load(ctx, m, nil)

	for _, r := range results {
		if !r.OK() {
			continue
		}
		if err := e.bank.Add(r.Layer, r.Buffer); err != nil {
			e.logger.Printf("[audio] bank add %s: %v", r.Locator, err)
		}
	}
	e.bank.Seal()

	summary := LoadSummary{Summary: asset.Summarize(results)}
	for _, layer := range core.Layers {
		summary.Modes[layer] = e.bank.Mode(layer)
	}

	e.mu.Lock()
	if e.loops != nil {
		for _, layer := range core.Layers {
			e.loops.Refresh(layer)
		}
	}
	e.mu.Unlock()

	e.logger.Printf("[audio] samples loaded: %s", summary)
	return summary
}

// LoadSamplesAsync runs LoadSamples in the background; the channel
// receives one summary then closes
func (e *Engine) LoadSamplesAsync(ctx context.Context, m asset.Manifest) <-chan LoadSummary {
	done := make(chan LoadSummary, 1)
	go func() {
		defer close(done)
		done <- e.LoadSamples(ctx, m)
	}()
	return done
}

// guard recovers a panic from fn and logs it
func (e *Engine) guard(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[audio] %s: recovered: %v", op, r)
		}
	}()
	fn()
}
