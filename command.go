package store

import (
	"fmt"
	"reflect"
)

// Command is a named state transition.
// Apply receives a private copy of the current state and returns the next
// state. It must not dispatch on the container it belongs to.
type Command[S any] interface {
	Name() string
	Apply(prev S, args ...any) (S, error)
}

func as[T any](v any) (T, bool) {
	if v == nil {
		var zero T
		return zero, nillable(reflect.TypeFor[T]())
	}

	t, ok := v.(T)
	return t, ok
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

func badArgs(name string, want int, args []any) error {
	return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrBadArguments, name, want, len(args))
}

func badArg(name string, i int, want string, got any) error {
	return fmt.Errorf("%w: %s argument %d must be %s, got %T", ErrBadArguments, name, i, want, got)
}

// Command0 is a command without arguments.
type Command0[S any] struct {
	name string
	fn   func(prev S) S
}

func NewCommand0[S any](name string, fn func(prev S) S) *Command0[S] {
	return &Command0[S]{name: name, fn: fn}
}

func (c *Command0[S]) Name() string { return c.name }

func (c *Command0[S]) Apply(prev S, args ...any) (S, error) {
	if len(args) != 0 {
		return prev, badArgs(c.name, 0, args)
	}
	return c.fn(prev), nil
}

// Call dispatches the command on on.
func (c *Command0[S]) Call(on *Container[S]) error {
	return on.Dispatch(c.name)
}

// Command1 is a command taking one argument of type A.
type Command1[S, A any] struct {
	name string
	fn   func(prev S) func(A) S
}

func NewCommand1[S, A any](name string, fn func(prev S) func(A) S) *Command1[S, A] {
	return &Command1[S, A]{name: name, fn: fn}
}

func (c *Command1[S, A]) Name() string { return c.name }

func (c *Command1[S, A]) Apply(prev S, args ...any) (S, error) {
	if len(args) != 1 {
		return prev, badArgs(c.name, 1, args)
	}

	a, ok := as[A](args[0])
	if !ok {
		return prev, badArg(c.name, 0, typeName[A](), args[0])
	}

	return c.fn(prev)(a), nil
}

// Call dispatches the command on on with a.
func (c *Command1[S, A]) Call(on *Container[S], a A) error {
	return on.Dispatch(c.name, a)
}

// Command2 is a command taking two arguments of types A and B.
type Command2[S, A, B any] struct {
	name string
	fn   func(prev S) func(A, B) S
}

func NewCommand2[S, A, B any](name string, fn func(prev S) func(A, B) S) *Command2[S, A, B] {
	return &Command2[S, A, B]{name: name, fn: fn}
}

func (c *Command2[S, A, B]) Name() string { return c.name }

func (c *Command2[S, A, B]) Apply(prev S, args ...any) (S, error) {
	if len(args) != 2 {
		return prev, badArgs(c.name, 2, args)
	}

	a, ok := as[A](args[0])
	if !ok {
		return prev, badArg(c.name, 0, typeName[A](), args[0])
	}
	b, ok := as[B](args[1])
	if !ok {
		return prev, badArg(c.name, 1, typeName[B](), args[1])
	}

	return c.fn(prev)(a, b), nil
}

// Call dispatches the command on on with a and b.
func (c *Command2[S, A, B]) Call(on *Container[S], a A, b B) error {
	return on.Dispatch(c.name, a, b)
}

// CommandN is a command checking its own arguments.
type CommandN[S any] struct {
	name string
	fn   func(prev S) func(args ...any) (S, error)
}

func NewCommandN[S any](name string, fn func(prev S) func(args ...any) (S, error)) *CommandN[S] {
	return &CommandN[S]{name: name, fn: fn}
}

func (c *CommandN[S]) Name() string { return c.name }

func (c *CommandN[S]) Apply(prev S, args ...any) (S, error) {
	return c.fn(prev)(args...)
}

// Call dispatches the command on on with args.
func (c *CommandN[S]) Call(on *Container[S], args ...any) error {
	return on.Dispatch(c.name, args...)
}
