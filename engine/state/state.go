// Package state manages the mutable key/value store that backs condition
// evaluation and text templating for one room engine.
package state

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/nathoo/holoroom/types"
)

// Kind identifies the dynamic type held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
)

// Value is a tagged state value. All comparisons and templating go through
// String, so "1", 1 and 1.0 authored in a story all render as "1".
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// FromAny converts a decoded story value (YAML or Lua) into a Value.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return String("")
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case float32:
		return Number(float64(x))
	case float64:
		return Number(x)
	case Value:
		return x
	default:
		return String(fmt.Sprintf("%v", x))
	}
}

// Kind reports the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// String renders v canonically. Integral numbers have no fractional part.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.FormatInt(int64(v.num), 10)
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return v.str
	}
}

// Store maps qualified keys to values. Keys are fixed once seeding is
// done; only values change afterwards. Iteration follows seeding order.
//
// A Store is not safe for concurrent use.
type Store struct {
	keys   []string
	values map[string]Value
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{values: map[string]Value{}}
}

// Seed builds the store for one room: global vars as bare keys, room state
// as room.state.<k>, and item state as items.<item>.<k>.
func Seed(story *types.Story, room *types.Room) *Store {
	s := NewStore()
	if story != nil {
		s.declareAll("", story.Vars)
	}
	if room == nil {
		return s
	}
	s.declareAll("room.state.", room.State)
	for _, it := range room.Items {
		if it == nil {
			continue
		}
		s.declareAll("items."+it.Name+".", it.State)
	}
	return s
}

func (s *Store) declareAll(prefix string, m map[string]any) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names) // deterministic within a scope
	for _, k := range names {
		s.Declare(prefix+k, FromAny(m[k]))
	}
}

// Declare adds key with an initial value, or replaces the value if the key
// already exists. It is meant for seeding only.
func (s *Store) Declare(key string, v Value) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Has reports whether key exists.
func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Get returns the value for key.
func (s *Store) Get(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set replaces the value of an existing key. It returns false, leaving the
// store untouched, if the key was never declared.
func (s *Store) Set(key string, v Value) bool {
	if _, ok := s.values[key]; !ok {
		return false
	}
	s.values[key] = v
	return true
}

// Len returns the number of keys.
func (s *Store) Len() int { return len(s.keys) }

// Each calls fn for every key in seeding order.
func (s *Store) Each(fn func(key string, v Value)) {
	for _, k := range s.keys {
		fn(k, s.values[k])
	}
}

// Sorted returns a copy of all entries rendered as strings, keyed by name.
func (s *Store) Sorted() []Entry {
	out := make([]Entry, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, Entry{Key: k, Value: s.values[k].String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Entry is a rendered key/value pair.
type Entry struct {
	Key   string
	Value string
}
