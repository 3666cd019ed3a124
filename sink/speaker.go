package sink

import (
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/mtclare/Storm-Machine/constant"
)

// Speaker plays through the default device via beep's speaker
type Speaker struct {
	mu     sync.Mutex
	opened bool
}

// NewSpeaker creates a speaker sink
func NewSpeaker() *Speaker {
	return &Speaker{}
}

func (s *Speaker) Name() string { return "speaker" }

func (s *Speaker) Open(format beep.Format, root beep.Streamer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return ErrAlreadyOpen
	}

	err := speaker.Init(format.SampleRate, format.SampleRate.N(constant.SpeakerBufferDuration))
	if err != nil {
		return err
	}

	speaker.Play(root)
	s.opened = true
	return nil
}

func (s *Speaker) Lock()   { speaker.Lock() }
func (s *Speaker) Unlock() { speaker.Unlock() }

func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil
	}

	// Clearing drops the root so no artifacts remain after close
	speaker.Clear()
	speaker.Close()
	s.opened = false
	return nil
}
