// Package store is a small reactive state container driven by named commands.
//
// A Container owns one state value. It can only be changed by dispatching one
// of the commands it was created with; every command receives a private copy
// of the current state and returns the next one, which replaces the old
// state wholesale.
//
// Effects created with NewEffect run immediately, and every container they
// read from while running records them as dependents. Any later dispatch on
// such a container re-runs its dependents synchronously, in the order they
// first read it. Tracking is per container, not per field.
//
//	counter := store.MustNew(Counter{}, []store.Command[Counter]{increment})
//
//	dispose, _ := store.NewEffect(func() {
//	    fmt.Println(counter.Get().Count)
//	})
//
//	increment.Call(counter, 5) // prints 5
//	dispose()
package store

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AnatoleLucet/store/internal"
	"github.com/AnatoleLucet/store/internal/clone"
	"github.com/AnatoleLucet/store/internal/field"
)

const tracerName = "github.com/AnatoleLucet/store"

// Cloner is implemented by state types that know how to copy themselves.
// Clone must return a value that shares no mutable memory with the receiver.
type Cloner[S any] interface {
	Clone() S
}

// Reader is the read side of a Container.
// Get and Field record the active effect as a dependent of the container.
type Reader[S any] interface {
	// Get returns a deep copy of the whole state.
	Get() S

	// Peek is Get without dependency tracking.
	Peek() S

	// Field returns a copy of the named field of the state, or false if the
	// state has no such field.
	Field(name string) (any, bool)
}

// Dispatcher is the command side of a Container.
type Dispatcher interface {
	Dispatch(name string, args ...any) error
	DispatchContext(ctx context.Context, name string, args ...any) error

	// Commands lists the command names in declaration order.
	Commands() []string
}

// Container holds a state value of type S and the commands allowed to replace it.
type Container[S any] struct {
	name string

	mu    sync.RWMutex // guards state
	write sync.Mutex   // serializes commits
	state S

	commands map[string]Command[S]
	order    []string

	clone func(S) (S, error)
	deps  internal.Dependents

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

var (
	_ Reader[any] = (*Container[any])(nil)
	_ Dispatcher  = (*Container[any])(nil)
)

// New creates a container holding a deep copy of initial.
func New[S any](initial S, commands []Command[S], opts ...Option) (*Container[S], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container[S]{
		name:     o.name,
		commands: make(map[string]Command[S], len(commands)),
		logger:   o.logger,
		metrics:  o.metrics,
		tracer:   o.tracer,
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}

	cloneFn, err := resolveClone[S](o.clone)
	if err != nil {
		return nil, err
	}
	c.clone = cloneFn

	for i, cmd := range commands {
		if isNil(cmd) {
			return nil, fmt.Errorf("%w: at index %d", ErrNilCommand, i)
		}

		name := cmd.Name()
		if _, ok := c.commands[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCommand, name)
		}

		c.commands[name] = cmd
		c.order = append(c.order, name)
	}

	state, err := c.clone(initial)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	c.state = state

	return c, nil
}

func isNil(cmd any) bool {
	if cmd == nil {
		return true
	}
	v := reflect.ValueOf(cmd)
	return nillable(v.Type()) && v.IsNil()
}

// MustNew is like New but panics on error.
func MustNew[S any](initial S, commands []Command[S], opts ...Option) *Container[S] {
	c, err := New(initial, commands, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func resolveClone[S any](opt any) (func(S) (S, error), error) {
	if opt != nil {
		fn, ok := opt.(func(S) (S, error))
		if !ok {
			return nil, fmt.Errorf("%w: clone func %T does not match state type", ErrBadOption, opt)
		}
		return fn, nil
	}

	var zero S
	if _, ok := any(zero).(Cloner[S]); ok {
		return func(s S) (S, error) {
			return any(s).(Cloner[S]).Clone(), nil
		}, nil
	}

	return clone.Copy[S], nil
}

// Name returns the name set with WithName.
func (c *Container[S]) Name() string {
	return c.name
}

// Reader returns the read side of the container.
func (c *Container[S]) Reader() Reader[S] {
	return c
}

// Dispatcher returns the command side of the container.
func (c *Container[S]) Dispatcher() Dispatcher {
	return c
}

func (c *Container[S]) Get() S {
	c.deps.Track(internal.GetRuntime())
	return c.Peek()
}

func (c *Container[S]) Peek() S {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.mustClone(c.state)
}

func (c *Container[S]) Field(name string) (any, bool) {
	c.deps.Track(internal.GetRuntime())

	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := field.Lookup(c.state, name)
	if !ok {
		return nil, false
	}

	out, err := clone.Value(v)
	if err != nil {
		panic(fmt.Sprintf("store: cloning field %q of committed state: %v", name, err))
	}
	return out, true
}

// every committed state went through c.clone once already
func (c *Container[S]) mustClone(s S) S {
	out, err := c.clone(s)
	if err != nil {
		panic(fmt.Sprintf("store: cloning committed state: %v", err))
	}
	return out
}

// Select reads the state through r and projects it with fn.
func Select[S, F any](r Reader[S], fn func(S) F) F {
	return fn(r.Get())
}

func (c *Container[S]) Commands() []string {
	return slices.Clone(c.order)
}

// DependentCount returns how many effects are recorded as dependents.
// Disposed effects are counted until the next dispatch sweeps them out.
func (c *Container[S]) DependentCount() int {
	return c.deps.Len()
}

// Dispatch runs the named command and re-runs every live dependent.
//
// The state is left unchanged if the command is unknown or fails. Once the
// new state is committed every live dependent runs, even if some fail; their
// failures are returned joined, as *EffectError values.
func (c *Container[S]) Dispatch(name string, args ...any) error {
	return c.DispatchContext(context.Background(), name, args...)
}

func (c *Container[S]) DispatchContext(ctx context.Context, name string, args ...any) error {
	start := time.Now()

	_, span := c.tracer.Start(ctx, "store.dispatch", trace.WithAttributes(
		attribute.String("store.container", c.name),
		attribute.String("store.command", name),
	))
	defer span.End()

	sweep, err := c.dispatch(name, args)

	span.SetAttributes(
		attribute.Int("store.notified", sweep.Notified),
		attribute.Int("store.purged", sweep.Purged),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	c.metrics.observe(c.name, name, sweep, err, time.Since(start))

	return err
}

func (c *Container[S]) dispatch(name string, args []any) (internal.Sweep, error) {
	cmd, ok := c.commands[name]
	if !ok {
		c.logger.Debug("unknown command", "container", c.name, "command", name)
		return internal.Sweep{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	if err := c.commit(cmd, args); err != nil {
		c.logger.Debug("command failed", "container", c.name, "command", name, "error", err)
		return internal.Sweep{}, fmt.Errorf("command %q: %w", name, err)
	}

	sweep := c.deps.Notify()

	c.logger.Debug("dispatched",
		"container", c.name,
		"command", name,
		"notified", sweep.Notified,
		"purged", sweep.Purged,
	)
	if sweep.Err != nil {
		c.logger.Warn("effects failed",
			"container", c.name,
			"command", name,
			"failed", sweep.Failed,
			"error", sweep.Err,
		)
	}

	return sweep, sweep.Err
}

// commit replaces the state with the command's result.
// The command sees a copy, and the result is copied again since it may
// share memory with the arguments.
func (c *Container[S]) commit(cmd Command[S], args []any) error {
	c.write.Lock()
	defer c.write.Unlock()

	c.mu.RLock()
	prev, err := c.clone(c.state)
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	next, err := cmd.Apply(prev, args...)
	if err != nil {
		return err
	}

	next, err = c.clone(next)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.state = next
	c.mu.Unlock()

	return nil
}
