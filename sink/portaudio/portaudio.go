//go:build portaudio

// Package portaudio provides a PortAudio output sink. It registers itself
// under the name "portaudio" when imported.
package portaudio

import (
	"sync"

	"github.com/gopxl/beep"
	pa "github.com/gordonklaus/portaudio"

	"github.com/mtclare/Storm-Machine/constant"
	"github.com/mtclare/Storm-Machine/sink"
)

func init() {
	sink.Register("portaudio", func() sink.Sink { return New() })
}

// Sink pulls the graph from the PortAudio stream callback
type Sink struct {
	mu     sync.Mutex
	root   beep.Streamer
	stream *pa.Stream
	buf    [][2]float64
}

// New creates an unopened PortAudio sink
func New() *Sink {
	return &Sink{}
}

func (s *Sink) Name() string { return "portaudio" }

func (s *Sink) Open(format beep.Format, root beep.Streamer) error {
	if s.stream != nil {
		return sink.ErrAlreadyOpen
	}
	if err := pa.Initialize(); err != nil {
		return err
	}

	s.root = root
	s.buf = make([][2]float64, constant.PortAudioFramesPerBuffer)

	stream, err := pa.OpenDefaultStream(0, constant.AudioChannels, float64(format.SampleRate), constant.PortAudioFramesPerBuffer, s.callback)
	if err != nil {
		pa.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return err
	}
	s.stream = stream
	return nil
}

// callback fills interleaved stereo float32 output
func (s *Sink) callback(out []float32) {
	frames := len(out) / constant.AudioChannels
	if cap(s.buf) < frames {
		s.buf = make([][2]float64, frames)
	}
	buf := s.buf[:frames]
	for i := range buf {
		buf[i] = [2]float64{}
	}

	s.mu.Lock()
	filled := 0
	for filled < frames {
		n, ok := s.root.Stream(buf[filled:])
		filled += n
		if !ok {
			break
		}
	}
	s.mu.Unlock()

	for i, frame := range buf {
		out[i*2] = float32(frame[0])
		out[i*2+1] = float32(frame[1])
	}
}

func (s *Sink) Lock()   { s.mu.Lock() }
func (s *Sink) Unlock() { s.mu.Unlock() }

func (s *Sink) Close() error {
	if s.stream == nil {
		return nil
	}
	s.stream.Stop()
	err := s.stream.Close()
	pa.Terminate()
	s.stream = nil
	return err
}
