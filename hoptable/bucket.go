package hoptable

import (
	"sync/atomic"

	"github.com/lever-go/stm/cell"
)

// slot is the payload an AtomicCell holds for a bucket's key or value: a
// present/absent pair, since cell.Cell has no notion of "empty" on its own.
type slot[T any] struct {
	present bool
	value   T
}

// bucket is one hopscotch slot: a hop-info bitmap (whose bit i, read from
// the bucket that is home for some key, means "the key with this home
// resides at home+i"), plus the key and value cells themselves. version is
// bumped on every bitmap mutation, so Get, which reads lock-free, can
// detect a displacement that raced its scan and retry.
type bucket[K comparable, V any] struct {
	hopInfo atomic.Uint64
	version atomic.Uint64
	key     *cell.Cell[slot[K]]
	value   *cell.Cell[slot[V]]
}

func newBucket[K comparable, V any]() *bucket[K, V] {
	return &bucket[K, V]{
		key:   cell.New(slot[K]{}),
		value: cell.New(slot[V]{}),
	}
}

func (b *bucket[K, V]) keyIs(k K) (ok bool) {
	s := b.key.Get()
	return s.present && s.value == k
}

func (b *bucket[K, V]) loadValue() (V, bool) {
	s := b.value.Get()
	return s.value, s.present
}

// install publishes (k, v) into this bucket. Key is installed before value
// so a reader that observes the hop-info bit set but the value cell still
// empty treats the key as absent.
func (b *bucket[K, V]) install(k K, v V) {
	b.key.ReplaceWith(func(slot[K]) slot[K] { return slot[K]{present: true, value: k} })
	b.value.ReplaceWith(func(slot[V]) slot[V] { return slot[V]{present: true, value: v} })
}

// vacate clears both cells, making the bucket available for reuse.
func (b *bucket[K, V]) vacate() {
	var zeroK slot[K]
	var zeroV slot[V]
	b.value.ReplaceWith(func(slot[V]) slot[V] { return zeroV })
	b.key.ReplaceWith(func(slot[K]) slot[K] { return zeroK })
}

func (b *bucket[K, V]) setBit(i uint) {
	for {
		old := b.hopInfo.Load()
		nw := old | (1 << i)
		if old == nw {
			return
		}
		if b.hopInfo.CompareAndSwap(old, nw) {
			b.version.Add(1)
			return
		}
	}
}

func (b *bucket[K, V]) clearBit(i uint) {
	for {
		old := b.hopInfo.Load()
		nw := old &^ (1 << i)
		if old == nw {
			return
		}
		if b.hopInfo.CompareAndSwap(old, nw) {
			b.version.Add(1)
			return
		}
	}
}
