package sink

import (
	"sync"

	"github.com/gopxl/beep"
)

// Offline renders only on demand. It backs tests and silent mode.
type Offline struct {
	mu       sync.Mutex
	root     beep.Streamer
	format   beep.Format
	rendered int
}

// NewOffline creates an offline sink
func NewOffline() *Offline {
	return &Offline{}
}

func (o *Offline) Name() string { return "offline" }

func (o *Offline) Open(format beep.Format, root beep.Streamer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.root != nil {
		return ErrAlreadyOpen
	}
	o.format = format
	o.root = root
	return nil
}

func (o *Offline) Lock()   { o.mu.Lock() }
func (o *Offline) Unlock() { o.mu.Unlock() }

func (o *Offline) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.root = nil
	return nil
}

// Render pulls n frames through the graph and returns them.
// A closed sink returns silence.
func (o *Offline) Render(n int) [][2]float64 {
	out := make([][2]float64, n)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.root == nil {
		return out
	}

	filled := 0
	for filled < n {
		got, ok := o.root.Stream(out[filled:])
		filled += got
		if !ok {
			break
		}
	}
	o.rendered += n
	return out
}

// Rendered returns the total frames pulled so far
func (o *Offline) Rendered() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rendered
}
