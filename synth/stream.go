package synth

import "github.com/gopxl/beep"

// bufferStreamer plays a mono Buffer once as identical stereo channels
type bufferStreamer struct {
	buf Buffer
	pos int
}

// Streamer returns a one-pass stereo streamer over b
func (b Buffer) Streamer() beep.Streamer {
	return &bufferStreamer{buf: b}
}

func (s *bufferStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.buf) {
		return 0, false
	}
	for i := range samples {
		if s.pos >= len(s.buf) {
			return i, true
		}
		v := s.buf[s.pos]
		samples[i][0] = v
		samples[i][1] = v
		s.pos++
	}
	return len(samples), true
}

func (s *bufferStreamer) Err() error { return nil }

// ToBeep copies b into a seekable beep.Buffer of the given format
func (b Buffer) ToBeep(format beep.Format) *beep.Buffer {
	out := beep.NewBuffer(format)
	out.Append(b.Streamer())
	return out
}
