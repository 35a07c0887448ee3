package store

import (
	"errors"

	"github.com/AnatoleLucet/store/internal"
	"github.com/AnatoleLucet/store/internal/clone"
)

// ErrUnknownCommand is returned when dispatching a name that is not in the
// container's command table. The state is left untouched and no effect runs.
var ErrUnknownCommand = errors.New("store: unknown command")

// ErrDuplicateCommand is returned by New when two commands share a name.
var ErrDuplicateCommand = errors.New("store: duplicate command")

// ErrBadArguments is returned when a command receives the wrong number or
// types of arguments.
var ErrBadArguments = errors.New("store: bad command arguments")

// ErrNilCommand is returned by New when the command list holds a nil command.
var ErrNilCommand = errors.New("store: nil command")

// ErrBadOption is returned by New when an option does not fit the state type.
var ErrBadOption = errors.New("store: bad option")

// ErrNotClonable is returned when a state value holds funcs, channels, unsafe
// pointers or cyclic references.
var ErrNotClonable = clone.ErrNotClonable

// EffectError wraps the failure of one effect during a notification sweep.
// A dispatch joins one EffectError per failing effect.
type EffectError = internal.EffectError

// PanicError carries the value recovered from a panicking effect.
type PanicError = internal.PanicError
