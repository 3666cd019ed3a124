package audio

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"github.com/mtclare/Storm-Machine/asset"
	"github.com/mtclare/Storm-Machine/clock"
	"github.com/mtclare/Storm-Machine/core"
	"github.com/mtclare/Storm-Machine/sink"
)

// failingSink refuses to open
type failingSink struct{ sink.Offline }

func (f *failingSink) Open(beep.Format, beep.Streamer) error {
	return sink.ErrNoAudioBackend
}

// TestEngineBeforeInitialize verifies calls are safe and report no data before Initialize
func TestEngineBeforeInitialize(t *testing.T) {
	e := NewEngine(testConfig(), WithSink(sink.NewOffline()))

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Engine panicked before Initialize: %v", r)
		}
	}()

	if data, ok := e.FrequencySnapshot(); ok || data != nil {
		t.Errorf("Expected no data before Initialize, got %v", data)
	}
	if _, fired := e.TriggerThunder(1); fired {
		t.Error("Expected no trigger before Initialize")
	}
	if _, fired := e.RollTrigger(core.LayerLightning, 1); fired {
		t.Error("Expected no roll before Initialize")
	}
	e.SetSoundLevel(core.LayerWind, 0.5)
	if e.Level(core.LayerWind) != 0.5 {
		t.Errorf("Expected level recorded, got %f", e.Level(core.LayerWind))
	}
	if err := e.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	e.Stop()
	if err := e.Close(); err != nil {
		t.Errorf("Expected nil close, got %v", err)
	}
}

// TestEngineInitializeFailure verifies a sink failure surfaces as a graph construction error
func TestEngineInitializeFailure(t *testing.T) {
	e := NewEngine(testConfig(), WithSink(&failingSink{}))

	err := e.Initialize()
	if !errors.Is(err, ErrGraphConstruction) {
		t.Fatalf("Expected ErrGraphConstruction, got %v", err)
	}
	if e.IsInitialized() {
		t.Error("Expected engine not initialized after failure")
	}
	if _, ok := e.FrequencySnapshot(); ok {
		t.Error("Expected no snapshot after failed Initialize")
	}
}

// TestEngineStartStopIdempotent verifies lifecycle flags and transport state
func TestEngineStartStopIdempotent(t *testing.T) {
	e, _, _ := newTestEngine(t, nil, nil)

	if e.IsRunning() {
		t.Error("Expected engine not running before Start")
	}
	if !e.graph.Suspended() {
		t.Error("Expected suspended transport before Start")
	}

	for i := 0; i < 2; i++ {
		if err := e.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}
	if !e.IsRunning() || e.graph.Suspended() {
		t.Error("Expected running engine with live transport")
	}

	e.Stop()
	e.Stop()
	if e.IsRunning() {
		t.Error("Expected engine stopped")
	}
}

// TestSetSoundLevelZeroSilences verifies zero level drops gain and generator for every layer
func TestSetSoundLevelZeroSilences(t *testing.T) {
	e, _, _ := newTestEngine(t, nil, nil)
	e.Start()

	for _, layer := range core.Layers {
		e.SetSoundLevel(layer, 0.6)
		e.SetSoundLevel(layer, 0)

		if g := e.LayerGain(layer); g != 0 {
			t.Errorf("Expected %s gain 0, got %f", layer, g)
		}
		if e.Active(layer) {
			t.Errorf("Expected no active generator for %s", layer)
		}
	}
}

// TestLoopingGainMapping verifies gain is intensity times 0.7 and updates in place
func TestLoopingGainMapping(t *testing.T) {
	e, _, _ := newTestEngine(t, nil, nil)
	e.Start()

	e.SetSoundLevel(core.LayerRain, 0.5)
	if g := e.LayerGain(core.LayerRain); math.Abs(g-0.35) > 1e-9 {
		t.Errorf("Expected gain 0.35, got %f", g)
	}
	ctrl := e.loops.active[core.LayerRain].ctrl

	e.SetSoundLevel(core.LayerRain, 1.0)
	if g := e.LayerGain(core.LayerRain); math.Abs(g-0.7) > 1e-9 {
		t.Errorf("Expected gain 0.7, got %f", g)
	}
	if e.loops.active[core.LayerRain].ctrl != ctrl {
		t.Error("Expected generator reused on intensity change")
	}

	// Out of range values clamp
	e.SetSoundLevel(core.LayerRain, 3)
	if e.Level(core.LayerRain) != 1 {
		t.Errorf("Expected level clamped to 1, got %f", e.Level(core.LayerRain))
	}
}

// TestRepeatedLevelsSingleGenerator verifies at most one live generator per looping layer
func TestRepeatedLevelsSingleGenerator(t *testing.T) {
	e, out, _ := newTestEngine(t, nil, nil)
	e.Start()

	for _, v := range []float64{0.2, 0.4, 0.9, 0.1, 0.5} {
		e.SetSoundLevel(core.LayerWind, v)
	}
	out.Render(512)
	if n := e.graph.Voices(core.LayerWind); n != 1 {
		t.Errorf("Expected 1 wind voice, got %d", n)
	}

	// Restart cycle tears the old generator down first
	e.SetSoundLevel(core.LayerWind, 0)
	e.SetSoundLevel(core.LayerWind, 0.3)
	out.Render(512)
	if n := e.graph.Voices(core.LayerWind); n != 1 {
		t.Errorf("Expected 1 wind voice after restart, got %d", n)
	}
}

// TestLoopingLayerAudible verifies a playing loop reaches the output
func TestLoopingLayerAudible(t *testing.T) {
	e, out, _ := newTestEngine(t, nil, nil)
	e.SetMasterVolume(1)
	e.Start()

	if p := peak(out.Render(256)); p != 0 {
		t.Errorf("Expected silence with no layers, got peak %f", p)
	}

	e.SetSoundLevel(core.LayerWind, 1)
	if p := peak(out.Render(1024)); p == 0 {
		t.Error("Expected audible wind")
	}
}

// TestThunderCooldown verifies thunder triggers are at least 0.5s apart
func TestThunderCooldown(t *testing.T) {
	e, _, clk := newTestEngine(t, nil, nil)
	e.Start()

	flash, fired := e.TriggerThunder(0.8)
	if !fired {
		t.Fatal("Expected first thunder to fire")
	}
	if flash.Layer != core.LayerThunder || flash.Duration != 300*time.Millisecond {
		t.Errorf("Expected 300ms thunder flash, got %+v", flash)
	}

	clk.Advance(400 * time.Millisecond)
	if _, fired := e.TriggerThunder(0.8); fired {
		t.Error("Expected thunder suppressed inside cooldown")
	}

	clk.Advance(100 * time.Millisecond)
	if _, fired := e.TriggerThunder(0.8); !fired {
		t.Error("Expected thunder to fire after cooldown")
	}
}

// TestLightningCooldown verifies lightning triggers are at least 0.3s apart
func TestLightningCooldown(t *testing.T) {
	e, _, clk := newTestEngine(t, nil, nil)
	e.Start()

	flash, fired := e.TriggerLightning(0.5)
	if !fired {
		t.Fatal("Expected first lightning to fire")
	}
	if flash.Duration != 150*time.Millisecond {
		t.Errorf("Expected 150ms lightning flash, got %v", flash.Duration)
	}

	clk.Advance(200 * time.Millisecond)
	if _, fired := e.TriggerLightning(0.5); fired {
		t.Error("Expected lightning suppressed inside cooldown")
	}
	clk.Advance(100 * time.Millisecond)
	if _, fired := e.TriggerLightning(0.5); !fired {
		t.Error("Expected lightning to fire after cooldown")
	}

	// Layers cool down independently
	if _, fired := e.TriggerThunder(0.5); !fired {
		t.Error("Expected thunder unaffected by lightning cooldown")
	}
}

// TestCooldownProducesSingleOneShot verifies two rapid triggers add one voice
func TestCooldownProducesSingleOneShot(t *testing.T) {
	e, _, clk := newTestEngine(t, nil, nil)
	e.Start()

	e.TriggerThunder(1)
	clk.Advance(100 * time.Millisecond)
	e.TriggerThunder(1)
	if n := e.graph.Voices(core.LayerThunder); n != 1 {
		t.Errorf("Expected 1 thunder voice, got %d", n)
	}

	clk.Advance(600 * time.Millisecond)
	e.TriggerThunder(1)
	if n := e.graph.Voices(core.LayerThunder); n != 2 {
		t.Errorf("Expected 2 thunder voices, got %d", n)
	}
}

// TestRollTriggerIntensityFloor verifies low intensities never fire
func TestRollTriggerIntensityFloor(t *testing.T) {
	e, _, _ := newTestEngine(t, nil, &scriptedRand{draws: []float64{0}})
	e.Start()

	for _, layer := range []core.Layer{core.LayerThunder, core.LayerLightning} {
		for _, i := range []float64{0, 0.05, 0.1} {
			if _, fired := e.RollTrigger(layer, i); fired {
				t.Errorf("Expected %s roll at %.2f not to fire", layer, i)
			}
		}
	}
}

// TestRollTriggerProbability verifies the draw must fall under intensity times p
func TestRollTriggerProbability(t *testing.T) {
	cases := []struct {
		layer     core.Layer
		intensity float64
		draw      float64
		fire      bool
	}{
		{core.LayerThunder, 1.0, 0.29, true},
		{core.LayerThunder, 1.0, 0.31, false},
		{core.LayerLightning, 1.0, 0.39, true},
		{core.LayerLightning, 1.0, 0.41, false},
		{core.LayerLightning, 0.5, 0.19, true},
		{core.LayerLightning, 0.5, 0.21, false},
	}

	for _, c := range cases {
		e, _, _ := newTestEngine(t, nil, &scriptedRand{draws: []float64{c.draw}})
		e.Start()
		_, fired := e.RollTrigger(c.layer, c.intensity)
		if fired != c.fire {
			t.Errorf("%s intensity %.2f draw %.2f: expected fired=%v, got %v", c.layer, c.intensity, c.draw, c.fire, fired)
		}
	}
}

// TestRollTriggerLoopingLayer verifies looping layers never roll
func TestRollTriggerLoopingLayer(t *testing.T) {
	e, _, _ := newTestEngine(t, nil, &scriptedRand{draws: []float64{0}})
	e.Start()
	if _, fired := e.RollTrigger(core.LayerWind, 1); fired {
		t.Error("Expected wind roll not to fire")
	}
}

// TestOneShotSelfTerminates verifies synthesized one-shots leave the bus when done
func TestOneShotSelfTerminates(t *testing.T) {
	e, out, _ := newTestEngine(t, nil, nil)
	e.Start()

	e.TriggerLightning(1)
	if n := e.graph.Voices(core.LayerLightning); n != 1 {
		t.Fatalf("Expected 1 lightning voice, got %d", n)
	}

	// 0.15s at 8kHz is 1200 frames
	out.Render(4000)
	if n := e.graph.Voices(core.LayerLightning); n != 0 {
		t.Errorf("Expected lightning voice drained, got %d", n)
	}
}

// TestEventAmbientLevel verifies event levels set the layer gain directly
func TestEventAmbientLevel(t *testing.T) {
	e, _, _ := newTestEngine(t, nil, nil)
	e.Start()

	e.SetSoundLevel(core.LayerThunder, 0.65)
	if g := e.LayerGain(core.LayerThunder); g != 0.65 {
		t.Errorf("Expected thunder gain 0.65, got %f", g)
	}
	if e.Active(core.LayerThunder) {
		t.Error("Expected no generator lifecycle for event layers")
	}
}

// TestStopKeepsEventGains verifies Stop halts loops only
func TestStopKeepsEventGains(t *testing.T) {
	e, _, _ := newTestEngine(t, nil, nil)
	e.Start()

	e.SetSoundLevel(core.LayerWind, 0.5)
	e.SetSoundLevel(core.LayerThunder, 0.8)
	e.Stop()

	if e.Active(core.LayerWind) || e.LayerGain(core.LayerWind) != 0 {
		t.Error("Expected wind stopped with zero gain")
	}
	if g := e.LayerGain(core.LayerThunder); g != 0.8 {
		t.Errorf("Expected thunder gain kept at 0.8, got %f", g)
	}

	// Levels set while stopped are recorded, not played
	e.SetSoundLevel(core.LayerRain, 0.4)
	if e.Active(core.LayerRain) {
		t.Error("Expected rain idle while stopped")
	}

	e.Start()
	if !e.Active(core.LayerWind) || !e.Active(core.LayerRain) {
		t.Error("Expected remembered loops restored on Start")
	}
	if g := e.LayerGain(core.LayerRain); math.Abs(g-0.28) > 1e-9 {
		t.Errorf("Expected rain gain 0.28, got %f", g)
	}
}

// TestConfiguredLevelsApplyOnStart verifies initial levels from config
func TestConfiguredLevelsApplyOnStart(t *testing.T) {
	cfg := testConfig()
	cfg.Levels = map[string]float64{"wind": 0.4, "lightning": 0.2}
	e, _, _ := newTestEngine(t, cfg, nil)

	if e.Active(core.LayerWind) {
		t.Error("Expected no playback before Start")
	}
	e.Start()
	if !e.Active(core.LayerWind) {
		t.Error("Expected wind playing after Start")
	}
	if g := e.LayerGain(core.LayerLightning); g != 0.2 {
		t.Errorf("Expected lightning gain 0.2, got %f", g)
	}
}

// TestMasterVolumeClamp verifies master volume clamps to [0,1]
func TestMasterVolumeClamp(t *testing.T) {
	e, _, _ := newTestEngine(t, nil, nil)

	e.SetMasterVolume(1.5)
	if v := e.MasterVolume(); v != 1 {
		t.Errorf("Expected 1, got %f", v)
	}
	e.SetMasterVolume(-0.2)
	if v := e.MasterVolume(); v != 0 {
		t.Errorf("Expected 0, got %f", v)
	}
	e.SetMasterVolume(0.25)
	if v := e.MasterVolume(); v != 0.25 {
		t.Errorf("Expected 0.25, got %f", v)
	}
}

// TestFrequencySnapshot verifies snapshot availability and shape
func TestFrequencySnapshot(t *testing.T) {
	e, out, _ := newTestEngine(t, nil, nil)

	if _, ok := e.FrequencySnapshot(); ok {
		t.Error("Expected no data while not running")
	}

	e.SetMasterVolume(1)
	e.Start()
	e.SetSoundLevel(core.LayerWind, 1)
	out.Render(1024)

	data, ok := e.FrequencySnapshot()
	if !ok {
		t.Fatal("Expected snapshot while running")
	}
	if len(data) != 128 {
		t.Fatalf("Expected 128 bins, got %d", len(data))
	}
	nonZero := 0
	for _, v := range data {
		if v > 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		t.Error("Expected energy in the spectrum")
	}

	// Pure read: a second call without rendering is identical
	again, _ := e.FrequencySnapshot()
	for i := range data {
		if data[i] != again[i] {
			t.Fatalf("Expected identical snapshots, bin %d differs", i)
		}
	}
}

// TestLoadSamplesPartialFailure verifies failed assets fall back without blocking others
func TestLoadSamplesPartialFailure(t *testing.T) {
	dir := t.TempDir()
	wind := writeTone(t, dir, "wind.wav", 200*time.Millisecond)
	thunder := writeTone(t, dir, "thunder.wav", 100*time.Millisecond)

	e, _, _ := newTestEngine(t, nil, nil)
	e.Start()
	e.SetSoundLevel(core.LayerWind, 0.5)

	if mode, _ := e.loops.ActiveMode(core.LayerWind); mode != ModeSynthesized {
		t.Errorf("Expected synthesized wind before load, got %s", mode)
	}

	m := asset.Manifest{
		core.LayerWind:      {wind},
		core.LayerRain:      {filepath.Join(dir, "missing.wav")},
		core.LayerThunder:   {filepath.Join(dir, "missing.mp3"), thunder, filepath.Join(dir, "bad.xyz")},
		core.LayerLightning: {},
	}
	summary := e.LoadSamples(context.Background(), m)

	if summary.Loaded[core.LayerThunder] != 1 || summary.Failed[core.LayerThunder] != 2 {
		t.Errorf("Expected thunder 1 loaded 2 failed, got %s", summary)
	}
	want := [core.LayerCount]Mode{
		core.LayerWind:      ModeSample,
		core.LayerRain:      ModeSynthesized,
		core.LayerThunder:   ModeSample,
		core.LayerLightning: ModeSynthesized,
	}
	if summary.Modes != want {
		t.Errorf("Expected modes %v, got %v", want, summary.Modes)
	}
	if !e.Bank().Sealed() {
		t.Error("Expected bank sealed after load")
	}

	// The playing wind loop switched to the decoded asset
	if mode, ok := e.loops.ActiveMode(core.LayerWind); !ok || mode != ModeSample {
		t.Errorf("Expected wind replaced by sample loop, got %s", mode)
	}

	// Thunder now plays the single decoded buffer
	if _, fired := e.TriggerThunder(1); !fired {
		t.Error("Expected sample thunder to fire")
	}
}

// TestLoadSamplesAsync verifies the async loader delivers one summary
func TestLoadSamplesAsync(t *testing.T) {
	e, _, _ := newTestEngine(t, nil, nil)

	done := e.LoadSamplesAsync(context.Background(), asset.Manifest{})
	select {
	case s, ok := <-done:
		if !ok {
			t.Fatal("Expected a summary before close")
		}
		for _, layer := range core.Layers {
			if s.Modes[layer] != ModeSynthesized {
				t.Errorf("Expected %s synthesized, got %s", layer, s.Modes[layer])
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for load")
	}
	if _, ok := <-done; ok {
		t.Error("Expected channel closed")
	}
}

// TestProceduralSynthesis verifies the procedural loop style plays
func TestProceduralSynthesis(t *testing.T) {
	cfg := testConfig()
	cfg.Synthesis = SynthesisProcedural
	cfg.MasterVolume = 1
	e, out, _ := newTestEngine(t, cfg, nil)
	e.Start()

	e.SetSoundLevel(core.LayerWind, 0.8)
	if p := peak(out.Render(2048)); p == 0 {
		t.Error("Expected audible procedural wind")
	}
}

// TestCloseIdempotent verifies Close releases the graph once
func TestCloseIdempotent(t *testing.T) {
	e, out, _ := newTestEngine(t, nil, nil)
	e.Start()
	e.SetSoundLevel(core.LayerWind, 1)

	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Expected nil on second close, got %v", err)
	}
	if e.IsRunning() || e.IsInitialized() {
		t.Error("Expected engine fully stopped")
	}
	if p := peak(out.Render(128)); p != 0 {
		t.Errorf("Expected silence after close, got %f", p)
	}
}

// TestTriggerRequiresRunning verifies triggers are refused while suspended or stopped
func TestTriggerRequiresRunning(t *testing.T) {
	e, out, _ := newTestEngine(t, nil, &scriptedRand{draws: []float64{0}})
	e.SetSoundLevel(core.LayerThunder, 1)

	if _, fired := e.TriggerThunder(1); fired {
		t.Error("Expected thunder refused before Start")
	}
	if _, fired := e.RollTrigger(core.LayerLightning, 1); fired {
		t.Error("Expected lightning roll refused before Start")
	}

	e.Start()
	if n := e.graph.Voices(core.LayerThunder); n != 0 {
		t.Errorf("Expected empty thunder bus at Start, got %d voices", n)
	}
	if p := peak(out.Render(4000)); p != 0 {
		t.Errorf("Expected silence after Start, got %f", p)
	}

	// No cooldown was stamped by the refused trigger
	if _, fired := e.TriggerThunder(1); !fired {
		t.Error("Expected thunder to fire once running")
	}

	e.Stop()
	before := e.graph.Voices(core.LayerThunder)
	if _, fired := e.TriggerLightning(1); fired {
		t.Error("Expected lightning refused after Stop")
	}
	if n := e.graph.Voices(core.LayerLightning); n != 0 {
		t.Errorf("Expected empty lightning bus after Stop, got %d voices", n)
	}
	if n := e.graph.Voices(core.LayerThunder); n != before {
		t.Errorf("Expected thunder voices unchanged after Stop, got %d", n)
	}
}

// TestReinitializeAfterClose verifies an engine can be closed and rebuilt
func TestReinitializeAfterClose(t *testing.T) {
	e := NewEngine(testConfig(), WithClock(clock.NewMock(testStart)), WithRand(&scriptedRand{}))
	defer e.Close()

	for i := 0; i < 2; i++ {
		if err := e.Initialize(); err != nil {
			t.Fatalf("Initialize %d failed: %v", i, err)
		}
		if err := e.Start(); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
		if _, fired := e.TriggerThunder(1); !fired {
			t.Errorf("Expected thunder to fire on cycle %d", i)
		}
		if err := e.Close(); err != nil {
			t.Fatalf("Close %d failed: %v", i, err)
		}
		if e.Sink() != nil {
			t.Errorf("Expected sink released after Close on cycle %d", i)
		}
	}
}

// TestStartStopConcurrent verifies a stopped engine never keeps a live loop
func TestStartStopConcurrent(t *testing.T) {
	e, _, _ := newTestEngine(t, nil, nil)
	e.SetSoundLevel(core.LayerWind, 0.5)

	for i := 0; i < 200; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.Start()
		}()
		go func() {
			defer wg.Done()
			e.Stop()
		}()
		wg.Wait()

		if running, active := e.IsRunning(), e.Active(core.LayerWind); running != active {
			t.Fatalf("Iteration %d: running=%v but wind active=%v", i, running, active)
		}
	}
}
