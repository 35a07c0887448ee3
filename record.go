package store

import (
	"fmt"
	"slices"

	"github.com/xiaq/persistent/hash"
	"github.com/xiaq/persistent/hashmap"

	"github.com/AnatoleLucet/store/internal/clone"
)

// Record is an immutable string-keyed state value.
//
// It is backed by a persistent hash map, so cloning a Record is O(1) and
// building a modified copy shares most of the structure with the original.
// Values are copied on the way in and on the way out, which keeps every
// version of a Record independent of caller-held references.
type Record struct {
	m hashmap.Map
}

var emptyRecord = hashmap.New(equalKey, hashKey)

func equalKey(k1, k2 any) bool {
	return k1 == k2
}

func hashKey(k any) uint32 {
	return hash.String(k.(string))
}

// NewRecord builds a Record from fields.
func NewRecord(fields map[string]any) (Record, error) {
	r := Record{emptyRecord}

	// sorted for a deterministic insertion order
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		var err error
		if r, err = r.With(name, fields[name]); err != nil {
			return Record{}, err
		}
	}

	return r, nil
}

// MustRecord is like NewRecord but panics on error.
func MustRecord(fields map[string]any) Record {
	r, err := NewRecord(fields)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Record) root() hashmap.Map {
	if r.m == nil {
		return emptyRecord
	}
	return r.m
}

// Field returns a copy of the value stored under name.
func (r Record) Field(name string) (any, bool) {
	v, ok := r.root().Index(name)
	if !ok {
		return nil, false
	}

	out, err := clone.Value(v)
	if err != nil {
		// With only stores values that cloned once already
		panic(fmt.Sprintf("store: cloning record field %q: %v", name, err))
	}
	return out, true
}

// With returns a copy of r with name set to a copy of v.
func (r Record) With(name string, v any) (Record, error) {
	c, err := clone.Value(v)
	if err != nil {
		return r, fmt.Errorf("field %q: %w", name, err)
	}
	return Record{r.root().Assoc(name, c)}, nil
}

// Without returns a copy of r without name.
func (r Record) Without(name string) Record {
	return Record{r.root().Dissoc(name)}
}

func (r Record) Len() int {
	return r.root().Len()
}

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, r.Len())
	for it := r.root().Iterator(); it.HasElem(); it.Next() {
		k, _ := it.Elem()
		keys = append(keys, k.(string))
	}
	slices.Sort(keys)
	return keys
}

// Map returns a copy of r as a plain map.
func (r Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	for _, k := range r.Keys() {
		out[k], _ = r.Field(k)
	}
	return out
}

// Clone returns r itself: a Record is never modified in place.
func (r Record) Clone() Record {
	return r
}

func (r Record) MarshalJSON() ([]byte, error) {
	return r.root().MarshalJSON()
}
