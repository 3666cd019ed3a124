package sink

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates an unopened Sink
type Factory func() Sink

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		"speaker": func() Sink { return NewSpeaker() },
		"pipe":    func() Sink { return NewPipe() },
		"offline": func() Sink { return NewOffline() },
	}
)

// Register adds a sink factory by name; optional backends register from init
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// New creates the named sink
func New(name string) (Sink, error) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSink, name)
	}
	return f(), nil
}

// Names returns all registered sink names, sorted
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
