package internal

// Runtime holds the reactive scope of one goroutine.
type Runtime struct {
	tracker *Tracker

	gid    int64
	scopes int // open scopes, the runtime stays bound while > 0
}

func NewRuntime() *Runtime {
	return &Runtime{
		tracker: NewTracker(),
	}
}

// effects is the process-wide registry of live effects.
// Scopes are per goroutine, liveness is not: an effect created on one
// goroutine can be notified by a write made on another.
var effects = NewRegistry()

// Effects returns the process-wide effect registry.
func Effects() *Registry {
	return effects
}

func (r *Runtime) CurrentOwner() *Owner {
	return r.tracker.CurrentOwner()
}

func (r *Runtime) CurrentEffect() *Effect {
	return r.tracker.CurrentEffect()
}

func (r *Runtime) RunWithOwner(owner *Owner, fn func()) {
	defer r.open()()
	r.tracker.RunWithOwner(owner, fn)
}

func (r *Runtime) RunWithEffect(e *Effect, fn func()) {
	defer r.open()()
	r.tracker.RunWithEffect(e, fn)
}

func (r *Runtime) Untrack(fn func()) {
	defer r.open()()
	r.tracker.RunUntracked(fn)
}

// open binds the runtime to its goroutine until the returned func is called.
func (r *Runtime) open() func() {
	if r.scopes == 0 {
		bind(r)
	}
	r.scopes++

	return func() {
		r.scopes--
		if r.scopes == 0 {
			unbind(r)
		}
	}
}

// OnCleanup registers fn on the innermost effect or owner.
// Outside of both, fn is dropped.
func (r *Runtime) OnCleanup(fn func()) {
	effect, owner := r.tracker.CleanupTarget()
	switch {
	case effect != nil:
		effect.OnCleanup(fn)
	case owner != nil:
		owner.OnCleanup(fn)
	}
}
