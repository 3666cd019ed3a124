// Package sink delivers the rendered storm mix to an output.
//
// A Sink pulls from a single root beep.Streamer on its own goroutine (or
// device callback). Lock/Unlock bracket structural edits to the graph so
// they never race a render pass.
package sink

import (
	"errors"

	"github.com/gopxl/beep"
)

// Sink is the real-time consumer at the end of the graph
type Sink interface {
	// Name identifies the backend for logs
	Name() string

	// Open starts pulling root at format's sample rate
	Open(format beep.Format, root beep.Streamer) error

	// Lock blocks the render path; hold it only for short graph edits
	Lock()
	Unlock()

	// Close stops rendering and releases the device. Idempotent.
	Close() error
}

// Sentinel errors
var (
	ErrNoAudioBackend = errors.New("no compatible audio backend found")
	ErrPipeClosed     = errors.New("audio pipe closed")
	ErrAlreadyOpen    = errors.New("sink already open")
	ErrUnknownSink    = errors.New("unknown sink")
)
