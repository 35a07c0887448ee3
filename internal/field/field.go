// Package field resolves named fields on state values.
package field

import (
	"reflect"
)

// Tag is the struct tag that renames a field for lookups.
const Tag = "store"

// Fielder is implemented by values that resolve their own fields.
type Fielder interface {
	Field(name string) (any, bool)
}

// Lookup returns the value stored under name in v.
// Struct fields are matched by their tag, or by their exported name when
// they have no tag. A field tagged "-" cannot be looked up. Maps must
// have string keys. Pointers are followed. Anything else has no fields.
func Lookup(v any, name string) (any, bool) {
	if v == nil || name == "" {
		return nil, false
	}
	if f, ok := v.(Fielder); ok {
		return f.Field(name)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		return lookupStruct(rv, name)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	}

	return nil, false
}

func lookupStruct(rv reflect.Value, name string) (any, bool) {
	t := rv.Type()

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.IsExported() && name != "-" && sf.Tag.Get(Tag) == name {
			return rv.Field(i).Interface(), true
		}
	}

	// a tagged field answers to its tag only
	sf, ok := t.FieldByName(name)
	if !ok || !sf.IsExported() || len(sf.Index) != 1 || sf.Tag.Get(Tag) != "" {
		return nil, false
	}
	return rv.Field(sf.Index[0]).Interface(), true
}
