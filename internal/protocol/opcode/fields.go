package opcode

import "iter"

// Fields is a string-keyed map that remembers insertion order. Replacing an
// existing key keeps its position. The zero value is ready to use.
type Fields[V any] struct {
	keys   []string
	values []V
	index  map[string]int
}

func (f *Fields[V]) Get(name string) (V, bool) {
	i, ok := f.index[name]
	if !ok {
		var zero V
		return zero, false
	}
	return f.values[i], true
}

func (f *Fields[V]) Set(name string, v V) {
	if i, ok := f.index[name]; ok {
		f.values[i] = v
		return
	}
	if f.index == nil {
		f.index = make(map[string]int)
	}
	f.index[name] = len(f.keys)
	f.keys = append(f.keys, name)
	f.values = append(f.values, v)
}

// Delete removes name and reports whether it was present.
func (f *Fields[V]) Delete(name string) bool {
	i, ok := f.index[name]
	if !ok {
		return false
	}
	f.keys = append(f.keys[:i], f.keys[i+1:]...)
	f.values = append(f.values[:i], f.values[i+1:]...)
	delete(f.index, name)
	for j := i; j < len(f.keys); j++ {
		f.index[f.keys[j]] = j
	}
	return true
}

func (f *Fields[V]) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

func (f *Fields[V]) Len() int {
	return len(f.keys)
}

// Keys returns the names in insertion order.
func (f *Fields[V]) Keys() []string {
	return append([]string(nil), f.keys...)
}

// At returns the i-th entry in insertion order.
func (f *Fields[V]) At(i int) (string, V, bool) {
	if i < 0 || i >= len(f.keys) {
		var zero V
		return "", zero, false
	}
	return f.keys[i], f.values[i], true
}

func (f *Fields[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for i, k := range f.keys {
			if !yield(k, f.values[i]) {
				return
			}
		}
	}
}
