package audio

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/wav"

	"github.com/mtclare/Storm-Machine/clock"
	"github.com/mtclare/Storm-Machine/sink"
)

const testRate = 8000

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// scriptedRand replays Float64 draws in order, then repeats the last one
type scriptedRand struct {
	mu    sync.Mutex
	draws []float64
	pick  int
}

func (r *scriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.draws) == 0 {
		return 0.5
	}
	v := r.draws[0]
	if len(r.draws) > 1 {
		r.draws = r.draws[1:]
	}
	return v
}

func (r *scriptedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pick % n
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.SampleRate = testRate
	cfg.Backend = "offline"
	return cfg
}

// newTestEngine returns an initialized engine rendering to an offline sink
func newTestEngine(t *testing.T, cfg *Config, rng Rand) (*Engine, *sink.Offline, *clock.Mock) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	if rng == nil {
		rng = &scriptedRand{}
	}

	out := sink.NewOffline()
	clk := clock.NewMock(testStart)
	e := NewEngine(cfg, WithSink(out), WithClock(clk), WithRand(rng))
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, out, clk
}

// peak returns the largest absolute sample in frames
func peak(frames [][2]float64) float64 {
	var p float64
	for _, f := range frames {
		for _, v := range f {
			if v < 0 {
				v = -v
			}
			if v > p {
				p = v
			}
		}
	}
	return p
}

// writeTone encodes a short 440Hz WAV fixture
func writeTone(t *testing.T, dir, name string, d time.Duration) string {
	t.Helper()

	rate := beep.SampleRate(testRate)
	tone, err := generators.SineTone(rate, 440)
	if err != nil {
		t.Fatalf("Failed to create tone: %v", err)
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("Failed to create fixture: %v", err)
	}
	defer f.Close()

	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, beep.Take(rate.N(d), tone), format); err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}
	return p
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
