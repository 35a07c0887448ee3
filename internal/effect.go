package internal

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var lastEffectID atomic.Uint64

type Effect struct {
	id     uint64
	handle Handle

	// owner is restored as the current owner on every run, so effects
	// created inside this one share its lifecycle.
	owner *Owner

	fn func() error

	mu       sync.Mutex
	cleanups []func()
}

// NewEffect registers fn as a live effect and runs it once.
// The effect stays registered even when the first run fails.
func (r *Runtime) NewEffect(fn func() error) (*Effect, error) {
	e := &Effect{
		id:    lastEffectID.Add(1),
		owner: r.CurrentOwner(),
		fn:    fn,
	}
	e.handle = Effects().Register(e)

	if e.owner != nil {
		e.owner.adopt(e)
	}

	return e, e.Run()
}

// Run executes the effect under its own scope on the calling goroutine.
// Panics are recovered and returned as *PanicError.
func (e *Effect) Run() (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()

	e.runCleanups()

	GetRuntime().RunWithEffect(e, func() {
		err = e.fn()
	})

	return err
}

// Dispose releases the effect handle and runs its cleanups.
// It reports false if it was already released.
func (e *Effect) Dispose() bool {
	if !Effects().Release(e.handle) {
		return false
	}

	e.runCleanups()
	return true
}

// OnCleanup registers fn to run before the next run of the effect, or when
// it is disposed. On a disposed effect fn runs right away.
func (e *Effect) OnCleanup(fn func()) {
	if !e.Alive() {
		fn()
		return
	}

	e.mu.Lock()
	e.cleanups = append(e.cleanups, fn)
	e.mu.Unlock()
}

func (e *Effect) runCleanups() {
	e.mu.Lock()
	cleanups := e.cleanups
	e.cleanups = nil
	e.mu.Unlock()

	for _, cleanup := range cleanups {
		cleanup()
	}
}

func (e *Effect) Alive() bool {
	return Effects().Alive(e.handle)
}

func (e *Effect) ID() uint64 {
	return e.id
}

func (e *Effect) Handle() Handle {
	return e.handle
}
