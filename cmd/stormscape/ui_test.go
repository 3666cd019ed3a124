package main

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/mtclare/Storm-Machine/audio"
	"github.com/mtclare/Storm-Machine/core"
)

// fakeEngine records UI calls
type fakeEngine struct {
	levels  [core.LayerCount]float64
	master  float64
	running bool
	thunder int
	bolts   int
}

func (f *fakeEngine) Start() error                          { f.running = true; return nil }
func (f *fakeEngine) Stop()                                 { f.running = false }
func (f *fakeEngine) SetSoundLevel(l core.Layer, v float64) { f.levels[l] = v }
func (f *fakeEngine) Level(l core.Layer) float64            { return f.levels[l] }
func (f *fakeEngine) SetMasterVolume(v float64)             { f.master = clamp(v) }
func (f *fakeEngine) MasterVolume() float64                 { return f.master }
func (f *fakeEngine) Mode(core.Layer) audio.Mode            { return audio.ModeSynthesized }

func (f *fakeEngine) TriggerThunder(float64) (audio.Flash, bool) {
	f.thunder++
	return audio.Flash{Layer: core.LayerThunder, Duration: 300 * time.Millisecond}, true
}

func (f *fakeEngine) TriggerLightning(float64) (audio.Flash, bool) {
	f.bolts++
	return audio.Flash{Layer: core.LayerLightning, Duration: 150 * time.Millisecond}, true
}

func (f *fakeEngine) FrequencySnapshot() ([]uint8, bool) {
	if !f.running {
		return nil, false
	}
	data := make([]uint8, 128)
	for i := range data {
		data[i] = uint8(i * 2)
	}
	return data, true
}

func newTestStorm(t *testing.T, engine soundscape) *Storm {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Failed to init simulation screen: %v", err)
	}
	screen.SetSize(120, 40)
	t.Cleanup(screen.Fini)
	return NewStorm(screen, engine, nil)
}

func key(k tcell.Key) tcell.Event { return tcell.NewEventKey(k, 0, tcell.ModNone) }
func char(r rune) tcell.Event     { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

// TestStormDialControls verifies selection and level keys reach the engine
func TestStormDialControls(t *testing.T) {
	f := &fakeEngine{master: 0.7}
	s := newTestStorm(t, f)
	now := time.Now()

	s.handleInput(char('l'), now)
	s.handleInput(char('l'), now)
	if got := f.levels[core.LayerWind]; got < 0.099 || got > 0.101 {
		t.Errorf("Expected wind 0.1, got %f", got)
	}

	s.handleInput(key(tcell.KeyDown), now)
	s.handleInput(char('9'), now)
	if f.levels[core.LayerRain] != 1 {
		t.Errorf("Expected rain 1, got %f", f.levels[core.LayerRain])
	}

	s.handleInput(char('k'), now)
	s.handleInput(char('k'), now)
	if s.selected != core.LayerLightning {
		t.Errorf("Expected selection to wrap to lightning, got %s", s.selected)
	}

	s.handleInput(key(tcell.KeyLeft), now)
	if f.levels[core.LayerLightning] != 0 {
		t.Errorf("Expected level clamped at 0, got %f", f.levels[core.LayerLightning])
	}

	s.handleInput(char('+'), now)
	if f.master < 0.749 || f.master > 0.751 {
		t.Errorf("Expected master 0.75, got %f", f.master)
	}
}

// TestStormPlayToggle verifies space starts and stops the engine
func TestStormPlayToggle(t *testing.T) {
	f := &fakeEngine{}
	s := newTestStorm(t, f)
	now := time.Now()

	s.handleInput(char(' '), now)
	if !f.running || !s.playing {
		t.Fatal("Expected engine running after space")
	}
	s.update()
	if len(s.spectrum) != 128 {
		t.Errorf("Expected spectrum pulled, got %d bins", len(s.spectrum))
	}

	s.handleInput(char(' '), now)
	if f.running || s.playing {
		t.Error("Expected engine stopped after second space")
	}
}

// TestStormTriggersFlash verifies manual triggers set flash deadlines
func TestStormTriggersFlash(t *testing.T) {
	f := &fakeEngine{}
	s := newTestStorm(t, f)
	now := time.Now()

	s.handleInput(char('t'), now)
	s.handleInput(char('b'), now)
	if f.thunder != 1 || f.bolts != 1 {
		t.Errorf("Expected one trigger each, got %d/%d", f.thunder, f.bolts)
	}
	if !s.flashUntil[core.LayerThunder].Equal(now.Add(300 * time.Millisecond)) {
		t.Error("Expected 300ms thunder flash")
	}
	if !s.flashUntil[core.LayerLightning].Equal(now.Add(150 * time.Millisecond)) {
		t.Error("Expected 150ms lightning flash")
	}

	// Drawing during and after a flash must not panic
	s.draw(now)
	s.draw(now.Add(time.Second))
}

// TestStormQuit verifies quit keys end the loop
func TestStormQuit(t *testing.T) {
	s := newTestStorm(t, &fakeEngine{})
	if s.handleInput(char('q'), time.Now()) {
		t.Error("Expected q to quit")
	}
	if s.handleInput(key(tcell.KeyEscape), time.Now()) {
		t.Error("Expected escape to quit")
	}
}

// TestStormWithoutAudio verifies the UI degrades when audio is unavailable
func TestStormWithoutAudio(t *testing.T) {
	s := newTestStorm(t, nil)
	now := time.Now()

	for _, ev := range []tcell.Event{char(' '), char('l'), char('t'), char('+'), key(tcell.KeyRight)} {
		if !s.handleInput(ev, now) {
			t.Fatal("Expected UI to keep running")
		}
	}
	if s.playing {
		t.Error("Expected no playback without audio")
	}
	if s.status == "" {
		t.Error("Expected a user-visible status")
	}
	s.draw(now)
}

// TestLevelBar verifies bar rendering
func TestLevelBar(t *testing.T) {
	if got := levelBar(0.5, 10); got != "[#####-----]" {
		t.Errorf("Expected half bar, got %s", got)
	}
	if got := levelBar(2, 4); got != "[####]" {
		t.Errorf("Expected full bar, got %s", got)
	}
	if got := levelBar(-1, 4); got != "[----]" {
		t.Errorf("Expected empty bar, got %s", got)
	}
}

// TestSpectrumColumns verifies bins are resampled to bar heights
func TestSpectrumColumns(t *testing.T) {
	bins := make([]uint8, 128)
	bins[0] = 255
	bins[127] = 51

	cols := spectrumColumns(bins, 64, 10)
	if len(cols) != 64 {
		t.Fatalf("Expected 64 columns, got %d", len(cols))
	}
	if cols[0] != 10 {
		t.Errorf("Expected full first column, got %d", cols[0])
	}
	if cols[63] != 2 {
		t.Errorf("Expected last column height 2, got %d", cols[63])
	}

	// More columns than bins still covers every column
	wide := spectrumColumns(bins, 200, 10)
	if wide[0] != 10 || len(wide) != 200 {
		t.Errorf("Expected 200 columns with full first, got %d/%d", len(wide), wide[0])
	}

	if spectrumColumns(nil, 10, 10) != nil {
		t.Error("Expected nil for empty bins")
	}
}
