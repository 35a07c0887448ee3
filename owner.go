package store

import "github.com/AnatoleLucet/store/internal"

// Owner groups effects so they can be disposed together.
type Owner struct {
	owner *internal.Owner
}

// NewOwner creates an owner.
// An owner created while another one runs becomes its child.
func NewOwner() *Owner {
	return &Owner{
		internal.GetRuntime().NewOwner(),
	}
}

// Run a function with this owner as the current owner.
// Every effect created within the function, including effects created later
// by those effects, is disposed when Dispose is called on this owner.
func (o *Owner) Run(fn func() error) error {
	var err error
	o.owner.Run(func() { err = fn() })
	return err
}

// Dispose this owner, its children and its effects.
func (o *Owner) Dispose() { o.owner.Dispose() }

// Add a function to be called when the owner is disposed.
func (o *Owner) OnCleanup(fn func()) { o.owner.OnCleanup(fn) }

// Add a function to be called when a panic occurs within Run.
// If no error listener is registered, the panic will propagate as usual.
func (o *Owner) OnError(fn func(any)) { o.owner.OnError(fn) }
