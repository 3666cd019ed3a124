package audio

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/mtclare/Storm-Machine/asset"
)

// AudioService wraps Engine and Scheduler as a Service
// Handles graceful degradation when no audio backend is available
type AudioService struct {
	config *Config
	opts   []Option
	logger *log.Logger

	engine    *Engine
	scheduler *Scheduler
	disabled  atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a new audio service
func NewService(cfg *Config, opts ...Option) *AudioService {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &AudioService{config: cfg, opts: opts}
}

// Name implements Service
func (s *AudioService) Name() string {
	return "audio"
}

// Dependencies implements Service
func (s *AudioService) Dependencies() []string {
	return nil
}

// Init implements Service
// args[0]: bool - initial mute state (true = disabled)
// Builds the graph; sets disabled flag on failure (no error returned)
func (s *AudioService) Init(args ...any) error {
	if len(args) > 0 {
		if muted, ok := args[0].(bool); ok && muted {
			s.config.Enabled = false
		}
	}
	if !s.config.Enabled {
		s.disabled.Store(true)
		return nil
	}

	engine := NewEngine(s.config, s.opts...)
	s.logger = engine.logger
	if err := engine.Initialize(); err != nil {
		s.log("[audio] disabled: %v", err)
		s.disabled.Store(true)
		return nil
	}
	s.engine = engine
	s.scheduler = NewScheduler(engine, s.config)
	return nil
}

// Start implements Service
// Loads samples in the background and starts the scheduler; playback
// itself begins with Engine.Start
func (s *AudioService) Start() error {
	if s.disabled.Load() || s.engine == nil || s.cancel != nil {
		return nil
	}

	manifest, err := s.config.Manifest()
	if err != nil {
		s.log("[audio] manifest: %v, using defaults", err)
		manifest = asset.DefaultManifest()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.engine.LoadSamples(ctx, manifest)
	}()
	go func() {
		defer s.wg.Done()
		s.scheduler.Run(ctx)
	}()
	return nil
}

// Stop implements Service
func (s *AudioService) Stop() error {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
		s.cancel = nil
	}
	if s.engine != nil {
		s.engine.Close()
	}
	return nil
}

// IsDisabled returns true if audio is unavailable
func (s *AudioService) IsDisabled() bool {
	return s.disabled.Load()
}

// Engine returns the underlying Engine (nil if disabled)
func (s *AudioService) Engine() *Engine {
	if s.disabled.Load() {
		return nil
	}
	return s.engine
}

// Scheduler returns the event scheduler (nil if disabled)
func (s *AudioService) Scheduler() *Scheduler {
	if s.disabled.Load() {
		return nil
	}
	return s.scheduler
}

func (s *AudioService) log(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
