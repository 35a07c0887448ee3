//go:build !wasm

package internal

import (
	"sync"

	"github.com/petermattis/goid"
)

// runtimes holds the runtimes of goroutines that have a scope open.
var runtimes sync.Map

// GetRuntime returns the runtime bound to the calling goroutine.
// A goroutine with no open scope gets a fresh, empty runtime.
func GetRuntime() *Runtime {
	gid := goid.Get()

	if r, ok := runtimes.Load(gid); ok {
		return r.(*Runtime)
	}

	r := NewRuntime()
	r.gid = gid
	return r
}

func bind(r *Runtime) {
	runtimes.Store(r.gid, r)
}

func unbind(r *Runtime) {
	runtimes.Delete(r.gid)
}
