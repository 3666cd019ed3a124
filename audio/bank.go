package audio

import (
	"fmt"
	"sync"

	"github.com/gopxl/beep"

	"github.com/mtclare/Storm-Machine/core"
)

// SampleBank holds decoded buffers per layer. It is filled during loading
// and read-only once sealed.
type SampleBank struct {
	mu      sync.RWMutex
	buffers [core.LayerCount][]*beep.Buffer
	sealed  bool
}

// NewSampleBank creates an empty, unsealed bank
func NewSampleBank() *SampleBank {
	return &SampleBank{}
}

// Add appends a buffer to a layer. Looping layers keep only their first buffer.
func (b *SampleBank) Add(layer core.Layer, buf *beep.Buffer) error {
	if !layer.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLayer, int(layer))
	}
	if buf == nil || buf.Len() == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return ErrBankSealed
	}
	if layer.IsLooping() && len(b.buffers[layer]) > 0 {
		return nil
	}
	b.buffers[layer] = append(b.buffers[layer], buf)
	return nil
}

// Seal freezes the bank
func (b *SampleBank) Seal() {
	b.mu.Lock()
	b.sealed = true
	b.mu.Unlock()
}

// Sealed reports whether loading has completed
func (b *SampleBank) Sealed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sealed
}

// Buffers returns the layer's buffers in load order
func (b *SampleBank) Buffers(layer core.Layer) []*beep.Buffer {
	if !layer.Valid() {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*beep.Buffer, len(b.buffers[layer]))
	copy(out, b.buffers[layer])
	return out
}

// Count returns the number of buffers for a layer
func (b *SampleBank) Count(layer core.Layer) int {
	if !layer.Valid() {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buffers[layer])
}

// Mode is sample only once sealed with at least one buffer
func (b *SampleBank) Mode(layer core.Layer) Mode {
	if !layer.Valid() {
		return ModeSynthesized
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.sealed && len(b.buffers[layer]) > 0 {
		return ModeSample
	}
	return ModeSynthesized
}
