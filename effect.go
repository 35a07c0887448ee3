package store

import "github.com/AnatoleLucet/store/internal"

// EffectFunc is the shape of an effect callback.
type EffectFunc interface {
	func() | func() error
}

// Disposer stops an effect. Calling it more than once does nothing.
type Disposer func()

// NewEffect runs fn once, right away, and again after every dispatch on a
// container it has read from.
//
// Reads made while fn runs are recorded against this effect only, even when
// effects are nested. A panic in fn is recovered and reported as a
// *PanicError. The error of the first run is returned; the effect stays
// alive either way.
func NewEffect[F EffectFunc](fn F) (Disposer, error) {
	var run func() error
	switch fn := any(fn).(type) {
	case func():
		run = func() error {
			fn()
			return nil
		}
	case func() error:
		run = fn
	}

	e, err := internal.GetRuntime().NewEffect(run)

	return func() { e.Dispose() }, err
}

// Untrack runs fn without recording any dependency.
func Untrack[T any](fn func() T) T {
	var result T
	internal.GetRuntime().Untrack(func() { result = fn() })
	return result
}

// OnCleanup registers fn on the innermost effect or owner.
//
// Inside an effect, fn runs before the effect's next run and when it is
// disposed. Inside Owner.Run, fn runs when the owner is disposed. Anywhere
// else fn is never called.
func OnCleanup(fn func()) {
	internal.GetRuntime().OnCleanup(fn)
}
