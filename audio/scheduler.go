package audio

import (
	"context"
	"time"

	"github.com/mtclare/Storm-Machine/core"
)

// flashBuffer bounds undelivered flashes
const flashBuffer = 8

// roller is the part of Engine the scheduler drives
type roller interface {
	IsRunning() bool
	Level(core.Layer) float64
	RollTrigger(core.Layer, float64) (Flash, bool)
}

// Scheduler rolls thunder and lightning on fixed intervals using the
// latest layer levels
type Scheduler struct {
	engine    roller
	intervals [core.LayerCount]time.Duration
	flashes   chan Flash
}

// NewScheduler creates a scheduler from the config intervals
func NewScheduler(e *Engine, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return newScheduler(e, cfg.ThunderInterval, cfg.LightningInterval)
}

func newScheduler(e roller, thunder, lightning time.Duration) *Scheduler {
	s := &Scheduler{
		engine:  e,
		flashes: make(chan Flash, flashBuffer),
	}
	s.intervals[core.LayerThunder] = thunder
	s.intervals[core.LayerLightning] = lightning
	return s
}

// Flashes delivers fired events; values are dropped when nobody reads
func (s *Scheduler) Flashes() <-chan Flash {
	return s.flashes
}

// Run ticks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	thunder := time.NewTicker(s.intervals[core.LayerThunder])
	defer thunder.Stop()
	lightning := time.NewTicker(s.intervals[core.LayerLightning])
	defer lightning.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-thunder.C:
			s.Roll(core.LayerThunder)
		case <-lightning.C:
			s.Roll(core.LayerLightning)
		}
	}
}

// Roll performs one roll for layer and publishes the flash if it fired
func (s *Scheduler) Roll(layer core.Layer) (Flash, bool) {
	if !s.engine.IsRunning() {
		return Flash{}, false
	}
	flash, fired := s.engine.RollTrigger(layer, s.engine.Level(layer))
	if !fired {
		return Flash{}, false
	}
	s.Publish(flash)
	return flash, true
}

// Publish queues a flash without blocking
func (s *Scheduler) Publish(f Flash) {
	select {
	case s.flashes <- f:
	default:
	}
}
