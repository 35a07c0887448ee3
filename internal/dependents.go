package internal

import (
	"errors"
	"sync"
)

// Dependents is the ordered set of effects that read a container while active.
// Tracking is coarse: one entry per effect, whatever it read.
type Dependents struct {
	mu sync.Mutex

	handles []Handle
	index   map[Handle]struct{}
}

// Track records the active effect of r, if any.
func (d *Dependents) Track(r *Runtime) {
	if e := r.CurrentEffect(); e != nil {
		d.Add(e.handle)
	}
}

// Add appends h unless it is already present. It reports whether h was added.
func (d *Dependents) Add(h Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.index == nil {
		d.index = make(map[Handle]struct{})
	}
	if _, ok := d.index[h]; ok {
		return false
	}

	d.index[h] = struct{}{}
	d.handles = append(d.handles, h)
	return true
}

// Len counts every recorded handle, dead ones included until the next sweep.
func (d *Dependents) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.handles)
}

// Sweep is the outcome of one notification pass.
type Sweep struct {
	Notified int
	Purged   int
	Failed   int

	// Err joins the *EffectError of every failed run, in notification order.
	Err error
}

// Notify runs every live dependent in insertion order.
// Dead handles are skipped and compacted out once the pass is over.
// A failing effect never stops the pass.
func (d *Dependents) Notify() Sweep {
	// copy before notify: effects may read or write the container again
	d.mu.Lock()
	handles := make([]Handle, len(d.handles))
	copy(handles, d.handles)
	d.mu.Unlock()

	var sweep Sweep
	var errs []error
	var dead []Handle

	for _, h := range handles {
		e, ok := Effects().Lookup(h)
		if !ok {
			dead = append(dead, h)
			continue
		}

		sweep.Notified++
		if err := e.Run(); err != nil {
			errs = append(errs, &EffectError{ID: e.id, Err: err})
		}
	}

	if len(dead) > 0 {
		sweep.Purged = d.purge(dead)
	}
	sweep.Failed = len(errs)
	sweep.Err = errors.Join(errs...)

	return sweep
}

func (d *Dependents) purge(dead []Handle) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	purged := 0
	for _, h := range dead {
		if _, ok := d.index[h]; ok {
			delete(d.index, h)
			purged++
		}
	}

	kept := d.handles[:0]
	for _, h := range d.handles {
		if _, ok := d.index[h]; ok {
			kept = append(kept, h)
		}
	}
	clear(d.handles[len(kept):])
	d.handles = kept

	return purged
}
