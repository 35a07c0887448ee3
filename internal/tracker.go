package internal

type Tracker struct {
	tracking bool

	currentOwner  *Owner  // for lifecycle/cleanup tracking
	currentEffect *Effect // for reactive dependency tracking

	// set when the innermost scope is an owner rather than an effect
	ownerScope bool
}

func NewTracker() *Tracker {
	return &Tracker{
		tracking: true,
	}
}

func (t *Tracker) RunWithOwner(owner *Owner, fn func()) {
	prev := t.currentOwner
	prevScope := t.ownerScope
	t.currentOwner = owner
	t.ownerScope = true
	defer func() {
		t.currentOwner = prev
		t.ownerScope = prevScope
	}()

	fn()
}

// RunWithEffect runs fn with e as the active effect.
// The previous scope is restored when fn returns or panics, so nested and
// re-entrant effect runs never leak their effect into the caller.
func (t *Tracker) RunWithEffect(e *Effect, fn func()) {
	prevOwner := t.currentOwner
	prevEffect := t.currentEffect
	prevTracking := t.tracking
	prevScope := t.ownerScope

	t.currentOwner = e.owner
	t.currentEffect = e
	t.tracking = true
	t.ownerScope = false

	defer func() {
		t.currentOwner = prevOwner
		t.currentEffect = prevEffect
		t.tracking = prevTracking
		t.ownerScope = prevScope
	}()

	fn()
}

func (t *Tracker) RunUntracked(fn func()) {
	prev := t.tracking
	t.tracking = false
	defer func() { t.tracking = prev }()

	fn()
}

func (t *Tracker) CurrentOwner() *Owner {
	return t.currentOwner
}

// CurrentEffect returns the effect reads should be recorded against, or nil.
func (t *Tracker) CurrentEffect() *Effect {
	if !t.ShouldTrack() {
		return nil
	}

	return t.currentEffect
}

// CleanupTarget returns the innermost effect or owner, whichever is nearer.
// Untracked reads do not change it.
func (t *Tracker) CleanupTarget() (*Effect, *Owner) {
	if t.currentEffect != nil && !t.ownerScope {
		return t.currentEffect, nil
	}
	return nil, t.currentOwner
}

func (t *Tracker) ShouldTrack() bool {
	return t.currentEffect != nil && t.tracking
}
