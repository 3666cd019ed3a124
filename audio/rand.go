package audio

import (
	"math/rand"
	"sync"
	"time"
)

// lockedRand serializes a Rand shared by the UI, the scheduler and the
// render path
type lockedRand struct {
	mu  sync.Mutex
	src Rand
}

func newLockedRand(src Rand) *lockedRand {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &lockedRand{src: src}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}
