package internal

import "fmt"

// PanicError carries a value recovered from a panicking effect.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// EffectError reports the failure of one effect run.
type EffectError struct {
	ID  uint64
	Err error
}

func (e *EffectError) Error() string {
	return fmt.Sprintf("effect %d: %v", e.ID, e.Err)
}

func (e *EffectError) Unwrap() error {
	return e.Err
}
