package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/mtclare/Storm-Machine/audio"
	"github.com/mtclare/Storm-Machine/core"
)

const (
	frameInterval = 16 * time.Millisecond // ~60 FPS
	levelStep     = 0.05
	volumeStep    = 0.05
	dialWidth     = 30
)

// soundscape is the engine surface the UI drives
type soundscape interface {
	Start() error
	Stop()
	SetSoundLevel(core.Layer, float64)
	Level(core.Layer) float64
	SetMasterVolume(float64)
	MasterVolume() float64
	TriggerThunder(float64) (audio.Flash, bool)
	TriggerLightning(float64) (audio.Flash, bool)
	FrequencySnapshot() ([]uint8, bool)
	Mode(core.Layer) audio.Mode
}

var layerColors = [core.LayerCount]tcell.Color{
	core.LayerWind:      tcell.ColorLightSteelBlue,
	core.LayerRain:      tcell.ColorDodgerBlue,
	core.LayerThunder:   tcell.ColorMediumPurple,
	core.LayerLightning: tcell.ColorYellow,
}

// Storm is the terminal front-end: four dials, a spectrum and flashes
type Storm struct {
	screen        tcell.Screen
	width, height int

	engine  soundscape // nil when audio is unavailable
	flashes <-chan audio.Flash
	status  string

	selected core.Layer
	playing  bool

	spectrum   []uint8
	flashUntil [core.LayerCount]time.Time
}

// NewStorm builds the UI over an initialized screen
func NewStorm(screen tcell.Screen, engine soundscape, flashes <-chan audio.Flash) *Storm {
	s := &Storm{
		screen:  screen,
		engine:  engine,
		flashes: flashes,
	}
	s.width, s.height = screen.Size()
	if engine == nil {
		s.status = "audio unavailable: playback disabled"
	} else {
		s.status = "space: start storm"
	}
	return s
}

// level reads a dial; the engine remembers levels even while stopped
func (s *Storm) level(layer core.Layer) float64 {
	if s.engine == nil {
		return 0
	}
	return s.engine.Level(layer)
}

func (s *Storm) setLevel(layer core.Layer, v float64) {
	if s.engine == nil {
		return
	}
	s.engine.SetSoundLevel(layer, clamp(v))
}

func (s *Storm) togglePlay() {
	if s.engine == nil {
		return
	}
	if s.playing {
		s.engine.Stop()
		s.playing = false
		s.spectrum = nil
		s.status = "paused"
		return
	}
	if err := s.engine.Start(); err != nil {
		s.status = fmt.Sprintf("start failed: %v", err)
		return
	}
	s.playing = true
	s.status = "storm running"
}

func (s *Storm) trigger(layer core.Layer, now time.Time) {
	if s.engine == nil {
		return
	}
	var (
		flash audio.Flash
		fired bool
	)
	if layer == core.LayerThunder {
		flash, fired = s.engine.TriggerThunder(1)
	} else {
		flash, fired = s.engine.TriggerLightning(1)
	}
	if fired {
		s.flash(flash, now)
	}
}

func (s *Storm) flash(f audio.Flash, now time.Time) {
	if f.Layer.Valid() {
		s.flashUntil[f.Layer] = now.Add(f.Duration)
	}
}

// handleInput applies one event; false quits
func (s *Storm) handleInput(ev tcell.Event, now time.Time) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			s.selectRelative(-1)
		case tcell.KeyDown, tcell.KeyTab:
			s.selectRelative(1)
		case tcell.KeyLeft:
			s.setLevel(s.selected, s.level(s.selected)-levelStep)
		case tcell.KeyRight:
			s.setLevel(s.selected, s.level(s.selected)+levelStep)
		case tcell.KeyRune:
			return s.handleRune(ev.Rune(), now)
		}

	case *tcell.EventResize:
		s.width, s.height = s.screen.Size()
		s.screen.Sync()
	}
	return true
}

func (s *Storm) handleRune(r rune, now time.Time) bool {
	switch r {
	case 'q':
		return false
	case ' ':
		s.togglePlay()
	case 'k':
		s.selectRelative(-1)
	case 'j':
		s.selectRelative(1)
	case 'h':
		s.setLevel(s.selected, s.level(s.selected)-levelStep)
	case 'l':
		s.setLevel(s.selected, s.level(s.selected)+levelStep)
	case '+', '=':
		if s.engine != nil {
			s.engine.SetMasterVolume(s.engine.MasterVolume() + volumeStep)
		}
	case '-':
		if s.engine != nil {
			s.engine.SetMasterVolume(s.engine.MasterVolume() - volumeStep)
		}
	case 't':
		s.trigger(core.LayerThunder, now)
	case 'b':
		s.trigger(core.LayerLightning, now)
	default:
		if r >= '0' && r <= '9' {
			s.setLevel(s.selected, float64(r-'0')/9)
		}
	}
	return true
}

func (s *Storm) selectRelative(d int) {
	n := int(core.LayerCount)
	s.selected = core.Layer(((int(s.selected)+d)%n + n) % n)
}

// update pulls the latest spectrum while playing
func (s *Storm) update() {
	if s.engine == nil || !s.playing {
		return
	}
	if data, ok := s.engine.FrequencySnapshot(); ok {
		s.spectrum = data
	}
}

func (s *Storm) draw(now time.Time) {
	s.screen.Clear()

	base := tcell.StyleDefault
	if now.Before(s.flashUntil[core.LayerThunder]) {
		base = base.Background(tcell.NewRGBColor(60, 50, 90))
	}
	if now.Before(s.flashUntil[core.LayerLightning]) {
		base = base.Background(tcell.NewRGBColor(220, 220, 255)).Foreground(tcell.ColorBlack)
	}
	s.fill(base)

	s.text(2, 1, base.Bold(true), "STORM MACHINE")

	for i, layer := range core.Layers {
		y := 3 + i*2
		style := base.Foreground(layerColors[layer])
		marker := "  "
		if layer == s.selected {
			marker = "> "
			style = style.Bold(true)
		}
		mode := ""
		if s.engine != nil {
			mode = s.engine.Mode(layer).String()
		}
		v := s.level(layer)
		line := fmt.Sprintf("%s%-10s %s %3d%%  %s", marker, layer, levelBar(v, dialWidth), int(v*100+0.5), mode)
		s.text(2, y, style, line)
	}

	master := 0.0
	if s.engine != nil {
		master = s.engine.MasterVolume()
	}
	s.text(2, 12, base, fmt.Sprintf("master %s %3d%%", levelBar(master, dialWidth), int(master*100+0.5)))
	s.text(2, 13, base.Dim(true), "j/k select  h/l adjust  0-9 set  space play  +/- master  t thunder  b lightning  q quit")
	s.text(2, 14, base.Italic(true), s.status)

	s.drawSpectrum(base, 16)
	s.screen.Show()
}

func (s *Storm) drawSpectrum(base tcell.Style, top int) {
	rows := s.height - top - 1
	if rows <= 0 || len(s.spectrum) == 0 {
		return
	}
	cols := s.width - 4
	heights := spectrumColumns(s.spectrum, cols, rows)
	for x, h := range heights {
		for y := 0; y < h; y++ {
			frac := float64(y) / float64(rows)
			color := tcell.NewRGBColor(int32(80+frac*175), int32(120+frac*80), 255)
			s.screen.SetContent(2+x, s.height-2-y, '█', nil, base.Foreground(color))
		}
	}
}

func (s *Storm) fill(style tcell.Style) {
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			s.screen.SetContent(x, y, ' ', nil, style)
		}
	}
}

func (s *Storm) text(x, y int, style tcell.Style, str string) {
	for _, r := range str {
		if x >= s.width {
			return
		}
		s.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// run drives input, flashes and redraws until quit
func (s *Storm) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !s.handleInput(ev, time.Now()) {
				return
			}

		case f := <-s.flashes:
			s.flash(f, time.Now())

		case <-ticker.C:
			s.update()
			s.draw(time.Now())
		}
	}
}

// levelBar renders v in [0,1] as a fixed-width bar
func levelBar(v float64, width int) string {
	filled := int(clamp(v)*float64(width) + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// spectrumColumns resamples bins to cols bars of at most rows cells
func spectrumColumns(bins []uint8, cols, rows int) []int {
	if cols <= 0 || len(bins) == 0 {
		return nil
	}
	out := make([]int, cols)
	for x := range out {
		lo := x * len(bins) / cols
		hi := (x + 1) * len(bins) / cols
		if hi <= lo {
			hi = lo + 1
		}
		peak := uint8(0)
		for _, b := range bins[lo:hi] {
			if b > peak {
				peak = b
			}
		}
		out[x] = int(peak) * rows / 255
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
