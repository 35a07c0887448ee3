package internal

import (
	"iter"
	"sync"
)

type Owner struct {
	mu sync.Mutex

	// effects created while this owner was current, in creation order
	effects []*Effect

	// cleanup functions to be called when the owner is disposed
	cleanups []func()

	// panic error handlers
	catchers []func(any)

	parent       *Owner
	prevSibling  *Owner
	nextSibling  *Owner
	childrenHead *Owner
}

// NewOwner creates an owner, as a child of the current owner if there is one.
func (r *Runtime) NewOwner() *Owner {
	o := &Owner{}

	if parent := r.CurrentOwner(); parent != nil {
		parent.AddChild(o)
	}

	return o
}

func (o *Owner) Run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.mu.Lock()
			catchers := o.catchers
			o.mu.Unlock()

			if len(catchers) == 0 {
				panic(r)
			}

			for _, catcher := range catchers {
				catcher(r)
			}
		}
	}()

	GetRuntime().RunWithOwner(o, fn)
}

func (parent *Owner) AddChild(child *Owner) {
	parent.mu.Lock()
	defer parent.mu.Unlock()

	child.parent = parent
	child.prevSibling = nil
	child.nextSibling = parent.childrenHead

	if parent.childrenHead != nil {
		parent.childrenHead.prevSibling = child
	}

	parent.childrenHead = child
}

func (n *Owner) Children() iter.Seq[*Owner] {
	return func(yield func(*Owner) bool) {
		n.mu.Lock()
		child := n.childrenHead
		n.mu.Unlock()

		for child != nil {
			if !yield(child) {
				return
			}

			child = child.nextSibling
		}
	}
}

// Dispose disposes the children, then the owned effects newest first,
// then runs the cleanups. Calling it again only reaches what was added since.
func (n *Owner) Dispose() {
	n.DisposeChildren()

	n.mu.Lock()
	effects := n.effects
	cleanups := n.cleanups
	n.effects = nil
	n.cleanups = nil
	n.mu.Unlock()

	for i := len(effects) - 1; i >= 0; i-- {
		effects[i].Dispose()
	}

	for _, cleanup := range cleanups {
		cleanup()
	}
}

func (n *Owner) DisposeChildren() {
	for child := range n.Children() {
		child.Dispose()
	}

	n.mu.Lock()
	n.childrenHead = nil
	n.mu.Unlock()
}

func (n *Owner) OnCleanup(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.cleanups = append(n.cleanups, fn)
}

func (n *Owner) OnError(fn func(any)) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.catchers = append(n.catchers, fn)
}

func (n *Owner) adopt(e *Effect) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.effects = append(n.effects, e)
}
