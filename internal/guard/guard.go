// Package guard provides per-resource mutual exclusion for settlement calls.
//
// A guard record is paired 1:1 with a listing or event and rejects a second
// settlement entering while one is in flight. The hazard is strictly
// intra-call: a fund transfer can hand control to a programmable receiver that
// calls back into the same entry point before the outer call finishes, so the
// registry is in-process and per-resource.
package guard

import (
	"errors"
	"sync"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/observability"
)

// ErrNotRegistered is returned when acquiring a guard that was never created
// or has been removed with its resource.
var ErrNotRegistered = errors.New("guard not registered")

type state struct {
	locked bool
}

// Registry holds one guard per resource key.
type Registry struct {
	mu     sync.Mutex
	guards map[string]*state
}

// NewRegistry creates an empty guard registry.
func NewRegistry() *Registry {
	return &Registry{guards: make(map[string]*state)}
}

// Register creates an Unlocked guard for the resource. Registering an existing
// key leaves its guard untouched.
func (r *Registry) Register(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.guards[key]; !ok {
		r.guards[key] = &state{}
		observability.DefaultMetrics.ActiveGuards.Inc()
	}
}

// Acquire transitions the resource's guard Unlocked→Locked and returns a
// release closure. It fails with domain.ErrReentrancyLocked when a settlement
// is already in flight for the key. The release is idempotent, always leaves
// the guard Unlocked, and is a no-op after Remove; callers defer it so every
// exit path, including a mid-flow arithmetic or transfer failure, releases
// the guard.
func (r *Registry) Acquire(key string) (release func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.guards[key]
	if !ok {
		return nil, ErrNotRegistered
	}
	if g.locked {
		return nil, domain.ErrReentrancyLocked
	}
	g.locked = true

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		g.locked = false
	}, nil
}

// Remove destroys the resource's guard. Removing an absent key is a no-op.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.guards[key]; ok {
		delete(r.guards, key)
		observability.DefaultMetrics.ActiveGuards.Dec()
	}
}

// IsLocked reports the guard's current state. Absent guards report false.
func (r *Registry) IsLocked(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guards[key]
	return ok && g.locked
}
