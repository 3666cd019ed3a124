// Package clock supplies the monotonic time source used for trigger cooldowns.
package clock

import (
	"sync"
	"time"
)

// Provider returns the current time
type Provider interface {
	Now() time.Time
}

// System reads the wall clock with its monotonic component
type System struct{}

// Now returns time.Now, which carries a monotonic reading
func (System) Now() time.Time {
	return time.Now()
}

// Mock is a controllable time source for tests
type Mock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewMock creates a mock clock starting at start
func NewMock(start time.Time) *Mock {
	return &Mock{current: start}
}

// Now returns the current mocked time
func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set jumps to t
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
}

// Advance moves the clock forward by d
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}
