//go:build wasm

package internal

import "sync"

var (
	once          sync.Once
	globalRuntime *Runtime
)

// GetRuntime returns the single runtime of the wasm process, which has one
// goroutine running reactive code.
func GetRuntime() *Runtime {
	once.Do(func() {
		globalRuntime = NewRuntime()
	})

	return globalRuntime
}

func bind(*Runtime)   {}
func unbind(*Runtime) {}
