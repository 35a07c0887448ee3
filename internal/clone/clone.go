// Package clone deep-copies state values.
//
// Copies are structural: every map, slice and pointer reachable through
// exported fields is duplicated. A value whose type has a Clone method
// returning its own type is copied with that method instead. Values that
// cannot be duplicated faithfully (funcs, channels, unsafe pointers, cyclic
// references, unexported fields holding references) are rejected with
// ErrNotClonable instead of being silently dropped or shared.
package clone

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

var ErrNotClonable = errors.New("store: value cannot be cloned")

// Copy returns a deep copy of v.
func Copy[T any](v T) (T, error) {
	src := reflect.ValueOf(&v).Elem()

	c := copier{onPath: make(map[visit]struct{})}
	dst, err := c.copy(src)
	if err != nil {
		var zero T
		return zero, err
	}

	// a nil interface T comes back as the zero value
	out, _ := dst.Interface().(T)
	return out, nil
}

// Value deep-copies a dynamically typed value.
// Primitives are returned as they are.
func Value(v any) (any, error) {
	if v == nil || IsPrimitive(v) {
		return v, nil
	}

	c := copier{onPath: make(map[visit]struct{})}
	dst, err := c.copy(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}

	return dst.Interface(), nil
}

// IsPrimitive reports whether v holds no references.
func IsPrimitive(v any) bool {
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

type copier struct {
	// references on the current descent path, to detect cycles
	onPath map[visit]struct{}
}

func (c *copier) enter(v reflect.Value) (func(), error) {
	key := visit{v.Pointer(), v.Type()}
	if _, ok := c.onPath[key]; ok {
		return nil, fmt.Errorf("%w: cyclic %s", ErrNotClonable, v.Type())
	}

	c.onPath[key] = struct{}{}
	return func() { delete(c.onPath, key) }, nil
}

// immutable struct types are shared as they are, whatever their fields hold.
var immutable = map[reflect.Type]struct{}{
	reflect.TypeFor[time.Time](): {},
}

// holdsRefs reports whether a value of type t can reach memory it does not
// own: a pointer, map, slice, interface, func, chan or unsafe pointer.
func holdsRefs(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	case reflect.Array:
		return holdsRefs(t.Elem())
	case reflect.Struct:
		if _, ok := immutable[t]; ok {
			return false
		}
		for i := 0; i < t.NumField(); i++ {
			if holdsRefs(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// cloneMethod returns the Clone method of v when it has the shape
// func() T with T the type of v.
func cloneMethod(v reflect.Value) (reflect.Value, bool) {
	t := v.Type()
	if t.Kind() == reflect.Interface || (t.Kind() == reflect.Pointer && v.IsNil()) {
		return reflect.Value{}, false
	}

	m, ok := t.MethodByName("Clone")
	if !ok || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 || m.Type.Out(0) != t {
		return reflect.Value{}, false
	}
	if !v.CanInterface() {
		return reflect.Value{}, false
	}

	return v.Method(m.Index), true
}

func (c *copier) copy(src reflect.Value) (reflect.Value, error) {
	dst := reflect.New(src.Type()).Elem()

	if m, ok := cloneMethod(src); ok {
		dst.Set(m.Call(nil)[0])
		return dst, nil
	}

	switch src.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if src.IsNil() {
			return dst, nil
		}
		return dst, fmt.Errorf("%w: %s", ErrNotClonable, src.Type())

	case reflect.Pointer:
		if src.IsNil() {
			return dst, nil
		}
		leave, err := c.enter(src)
		if err != nil {
			return dst, err
		}
		defer leave()

		elem, err := c.copy(src.Elem())
		if err != nil {
			return dst, err
		}
		p := reflect.New(src.Type().Elem())
		p.Elem().Set(elem)
		dst.Set(p)

	case reflect.Interface:
		if src.IsNil() {
			return dst, nil
		}
		elem, err := c.copy(src.Elem())
		if err != nil {
			return dst, err
		}
		dst.Set(elem)

	case reflect.Slice:
		if src.IsNil() {
			return dst, nil
		}
		if src.Len() > 0 {
			leave, err := c.enter(src)
			if err != nil {
				return dst, err
			}
			defer leave()
		}

		s := reflect.MakeSlice(src.Type(), src.Len(), src.Cap())
		for i := 0; i < src.Len(); i++ {
			elem, err := c.copy(src.Index(i))
			if err != nil {
				return dst, err
			}
			s.Index(i).Set(elem)
		}
		dst.Set(s)

	case reflect.Array:
		for i := 0; i < src.Len(); i++ {
			elem, err := c.copy(src.Index(i))
			if err != nil {
				return dst, err
			}
			dst.Index(i).Set(elem)
		}

	case reflect.Map:
		if src.IsNil() {
			return dst, nil
		}
		leave, err := c.enter(src)
		if err != nil {
			return dst, err
		}
		defer leave()

		m := reflect.MakeMapWithSize(src.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			k, err := c.copy(iter.Key())
			if err != nil {
				return dst, err
			}
			v, err := c.copy(iter.Value())
			if err != nil {
				return dst, err
			}
			m.SetMapIndex(k, v)
		}
		dst.Set(m)

	case reflect.Struct:
		t := src.Type()
		if _, ok := immutable[t]; ok {
			dst.Set(src)
			break
		}

		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() && holdsRefs(sf.Type) {
				return dst, fmt.Errorf("%w: unexported field %s.%s holds references, give %s a Clone method",
					ErrNotClonable, t, sf.Name, t)
			}
		}

		// what is left unexported is plain data, copied by value
		dst.Set(src)

		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			f, err := c.copy(src.Field(i))
			if err != nil {
				return dst, fmt.Errorf("%s.%s: %w", t, t.Field(i).Name, err)
			}
			dst.Field(i).Set(f)
		}

	default:
		dst.Set(src)
	}

	return dst, nil
}
