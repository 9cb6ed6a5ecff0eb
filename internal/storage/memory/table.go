package memory

import "slices"

// table is an insertion-ordered map. Values are held by value so callers
// never share memory with the store.
type table[K comparable, V any] struct {
	order []K
	data  map[K]V
}

func newTable[K comparable, V any]() table[K, V] {
	return table[K, V]{data: make(map[K]V)}
}

func (t *table[K, V]) get(k K) (V, bool) {
	v, ok := t.data[k]
	return v, ok
}

// put inserts k at the end of the order, or replaces it in place if present.
func (t *table[K, V]) put(k K, v V) {
	if _, ok := t.data[k]; !ok {
		t.order = append(t.order, k)
	}
	t.data[k] = v
}

// remove deletes k and returns its former position, or -1.
func (t *table[K, V]) remove(k K) int {
	if _, ok := t.data[k]; !ok {
		return -1
	}
	delete(t.data, k)
	pos := slices.Index(t.order, k)
	t.order = slices.Delete(t.order, pos, pos+1)
	return pos
}

// restore puts k back at pos, undoing a remove.
func (t *table[K, V]) restore(pos int, k K, v V) {
	t.order = slices.Insert(t.order, pos, k)
	t.data[k] = v
}

func (t *table[K, V]) len() int {
	return len(t.order)
}

func (t *table[K, V]) values() []V {
	out := make([]V, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.data[k])
	}
	return out
}
