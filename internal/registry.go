package internal

import "sync"

// Handle identifies one effect in a Registry.
// A handle is alive until the effect is released. Releasing bumps the slot
// generation, so a stale handle never matches a later occupant of its slot.
type Handle struct {
	index int
	gen   uint64
}

type slot struct {
	gen    uint64
	effect *Effect // nil when the slot is free
}

// Registry is a generation-stamped table of live effects.
type Registry struct {
	mu sync.Mutex

	slots []slot
	free  []int
	live  int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register stores e in a free slot and returns its handle.
func (r *Registry) Register(e *Effect) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var i int
	if n := len(r.free); n > 0 {
		i = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot{})
		i = len(r.slots) - 1
	}

	r.slots[i].effect = e
	r.live++

	return Handle{index: i, gen: r.slots[i].gen}
}

// Lookup returns the effect behind h if h is still alive.
func (r *Registry) Lookup(h Handle) (*Effect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.aliveLocked(h) {
		return nil, false
	}

	return r.slots[h.index].effect, true
}

func (r *Registry) Alive(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.aliveLocked(h)
}

// Release frees the slot of h. It reports false if h was already dead.
func (r *Registry) Release(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.aliveLocked(h) {
		return false
	}

	s := &r.slots[h.index]
	s.effect = nil
	s.gen++

	r.free = append(r.free, h.index)
	r.live--

	return true
}

// Len returns the number of live effects.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.live
}

func (r *Registry) aliveLocked(h Handle) bool {
	if h.index < 0 || h.index >= len(r.slots) {
		return false
	}

	s := r.slots[h.index]
	return s.effect != nil && s.gen == h.gen
}
