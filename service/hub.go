package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Sentinel errors
var (
	ErrDuplicate       = errors.New("service already registered")
	ErrMissingDep      = errors.New("dependency not registered")
	ErrCircularDep     = errors.New("circular service dependency")
	ErrServiceNotFound = errors.New("service not found")
)

// Hub owns the application's services and drives their lifecycle in
// dependency order
type Hub struct {
	mu       sync.Mutex
	services map[string]Service
	order    []string // Dependency order, rebuilt after Register
	started  []string // Completed Start, stopped in reverse
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{services: make(map[string]Service)}
}

// Register adds a service under its name
func (h *Hub) Register(svc Service) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := svc.Name()
	if _, ok := h.services[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	h.services[name] = svc
	h.order = nil
	return nil
}

// Get looks up a service and asserts its type
func Get[T Service](h *Hub, name string) (T, error) {
	var zero T
	h.mu.Lock()
	svc, ok := h.services[name]
	h.mu.Unlock()

	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("service %s has type %T", name, svc)
	}
	return typed, nil
}

// InitAll calls Init on every service, dependencies first.
// A failure stops the already initialized services in reverse.
func (h *Hub) InitAll(args ...any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.order == nil {
		order, err := h.resolve()
		if err != nil {
			return err
		}
		h.order = order
	}

	for i, name := range h.order {
		if err := h.services[name].Init(args...); err != nil {
			h.stopReverse(h.order[:i])
			return fmt.Errorf("service %s init: %w", name, err)
		}
	}
	return nil
}

// StartAll calls Start in dependency order, rolling back on failure
func (h *Hub) StartAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.started = h.started[:0]
	for _, name := range h.order {
		if err := h.services[name].Start(); err != nil {
			h.stopReverse(h.started)
			h.started = nil
			return fmt.Errorf("service %s start: %w", name, err)
		}
		h.started = append(h.started, name)
	}
	return nil
}

// StopAll stops started services in reverse order
func (h *Hub) StopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopReverse(h.started)
	h.started = nil
}

// Order returns the resolved init order, nil before InitAll
func (h *Hub) Order() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.order...)
}

func (h *Hub) stopReverse(names []string) {
	for i := len(names) - 1; i >= 0; i-- {
		h.services[names[i]].Stop()
	}
}

// resolve orders services so each follows its dependencies (Kahn's
// algorithm, ties broken by name)
func (h *Hub) resolve() ([]string, error) {
	pending := make(map[string]int, len(h.services))
	dependents := make(map[string][]string)

	for name := range h.services {
		pending[name] = 0
	}
	for name, svc := range h.services {
		for _, dep := range svc.Dependencies() {
			if _, ok := h.services[dep]; !ok {
				return nil, fmt.Errorf("%w: %s needs %s", ErrMissingDep, name, dep)
			}
			pending[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, n := range pending {
		if n == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(h.services))
	for len(ready) > 0 {
		sort.Strings(ready)
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for _, d := range dependents[name] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) != len(h.services) {
		return nil, ErrCircularDep
	}
	return order, nil
}
