package capability

import (
	"fmt"
	"sort"

	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Map is an immutable name -> implementation mapping. The zero value is
// an empty map.
type Map[T any] struct {
	label Label
	items map[string]T
}

// NewMap copies items into a Map. Mostly useful in tests and for
// capability sets assembled by hand.
func NewMap[T any](label Label, items map[string]T) Map[T] {
	cp := make(map[string]T, len(items))
	for k, v := range items {
		cp[k] = v
	}
	return Map[T]{label: label, items: cp}
}

func (m Map[T]) Label() Label { return m.label }
func (m Map[T]) Len() int     { return len(m.items) }

func (m Map[T]) Get(name string) (T, bool) {
	v, ok := m.items[name]
	return v, ok
}

// Names lists the loaded capability names, sorted.
func (m Map[T]) Names() []string {
	out := make([]string, 0, len(m.items))
	for k := range m.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Lookup fetches name from m and asserts it to I.
func Lookup[I any, T any](m Map[T], name string) (I, error) {
	var zero I
	v, ok := m.items[name]
	if !ok {
		return zero, xerrors.EnsureTrace(fmt.Errorf("%w: %s %q", ErrNotFound, m.label, name))
	}
	impl, ok := any(v).(I)
	if !ok {
		return zero, xerrors.EnsureTrace(fmt.Errorf("%w: %s %q is %T", ErrWrongType, m.label, name, v))
	}
	return impl, nil
}
