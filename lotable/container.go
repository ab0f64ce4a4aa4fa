package lotable

import "maps"

// container is the immutable-style map snapshot wrapped inside each shard's
// cell. Every mutating operation returns a new container built with
// maps.Clone rather than mutating the receiver, so a reader holding a prior
// snapshot never observes a torn map.
type container[K comparable, V any] struct {
	data map[K]V
}

func newContainer[K comparable, V any]() container[K, V] {
	return container[K, V]{data: make(map[K]V)}
}

func (c container[K, V]) get(k K) (V, bool) {
	v, ok := c.data[k]
	return v, ok
}

func (c container[K, V]) with(k K, v V) container[K, V] {
	next := maps.Clone(c.data)
	if next == nil {
		next = make(map[K]V, 1)
	}
	next[k] = v
	return container[K, V]{data: next}
}

func (c container[K, V]) without(k K) container[K, V] {
	if _, ok := c.data[k]; !ok {
		return c
	}
	next := maps.Clone(c.data)
	delete(next, k)
	return container[K, V]{data: next}
}

func (c container[K, V]) len() int {
	return len(c.data)
}
