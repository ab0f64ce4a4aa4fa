// Package hoptable implements HOPTable, a lock-free hopscotch hash table
// tuned for cache-oblivious lookups at high fill factors.
// Every bucket is an AtomicCell-backed key/value pair plus a hop-info
// bitmap; Get never blocks, and Insert/Remove serialize only through
// per-bucket CAS loops on the bitmap and the AtomicCell publication
// protocol, never a table-wide lock.
package hoptable

import (
	"github.com/lever-go/stm/internal/hashing"
)

// Table is a hopscotch hash table. The zero value is not usable; construct
// one with WithCapacity.
type Table[K comparable, V any] struct {
	buckets  []*bucket[K, V]
	capMask  uint64
	hopRange int
	addRange int
	hasher   hashing.Hasher[K]
	metrics  CapacityRecorder
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// WithCapacity constructs a Table whose addressable capacity is n rounded
// up to a power of two. The backing array carries ADD_RANGE+HOP_RANGE extra
// buckets past the last home slot so neither Insert's linear probe for a
// free slot nor a neighborhood scan ever runs past the end of the array.
func WithCapacity[K comparable, V any](n int, opts ...Option[K]) *Table[K, V] {
	cfg := defaultConfig[K]()
	for _, o := range opts {
		o(&cfg)
	}
	cap := nextPowerOfTwo(n)
	total := cap + cfg.addRange + cfg.hopRange

	buckets := make([]*bucket[K, V], total)
	for i := range buckets {
		buckets[i] = newBucket[K, V]()
	}

	return &Table[K, V]{
		buckets:  buckets,
		capMask:  uint64(cap - 1),
		hopRange: cfg.hopRange,
		addRange: cfg.addRange,
		hasher:   cfg.hasher,
		metrics:  cfg.metrics,
	}
}

func (t *Table[K, V]) home(k K) uint64 {
	return t.hasher.Hash(k) & t.capMask
}

// Get returns the value for k. The scan of the home bucket's hop-info
// bitmap is wait-free; it retries only if the home's version counter
// changes while the scan is in flight, which happens only under a
// concurrent displacement touching the same home.
func (t *Table[K, V]) Get(k K) (V, bool) {
	h := t.home(k)
	home := t.buckets[h]
outer:
	for {
		v0 := home.version.Load()
		bits := home.hopInfo.Load()
		for i := 0; i < t.hopRange; i++ {
			if bits&(1<<uint(i)) == 0 {
				continue
			}
			b := t.buckets[h+uint64(i)]
			if b.keyIs(k) {
				val, ok := b.loadValue()
				if !ok {
					// Key cell installed, value cell not yet: absent.
					continue
				}
				if home.version.Load() != v0 {
					continue outer
				}
				return val, true
			}
		}
		var zero V
		if home.version.Load() != v0 {
			continue outer
		}
		return zero, false
	}
}

func (t *Table[K, V]) findFreeSlot(home uint64) (uint64, bool) {
	for i := 0; i < t.addRange; i++ {
		idx := home + uint64(i)
		if !t.buckets[idx].key.Get().present {
			return idx, true
		}
	}
	return 0, false
}

// displace finds a bucket in [free-(HOP_RANGE-1), free) that owns a slot
// closer to its own home than free, moves that slot's (key, value) into
// free, and returns the vacated bucket's index as the new, closer free
// slot. It installs at the destination before clearing the source, and the
// bit flips bump the moved-from home's version counter so Get can detect a
// scan that raced the move.
func (t *Table[K, V]) displace(home, free uint64) (newFree uint64, ok bool) {
	hopRange := uint64(t.hopRange)
	start := uint64(0)
	if free >= hopRange-1 {
		start = free - (hopRange - 1)
	}
	for m := start; m < free; m++ {
		mb := t.buckets[m]
		bits := mb.hopInfo.Load()
		for j := uint64(0); j < hopRange; j++ {
			if bits&(1<<j) == 0 {
				continue
			}
			owned := m + j
			if owned >= free {
				continue
			}
			ob := t.buckets[owned]
			ks := ob.key.Get()
			vs := ob.value.Get()
			if !ks.present || !vs.present {
				continue
			}
			fb := t.buckets[free]
			fb.install(ks.value, vs.value)
			mb.setBit(uint(free - m))
			ob.vacate()
			mb.clearBit(uint(j))
			return owned, true
		}
	}
	return 0, false
}

func (t *Table[K, V]) capacityFailure(k K) error {
	if t.metrics != nil {
		t.metrics.RecordHOPCapacityFailure()
	}
	return newCapacityError(k, t.hopRange, t.addRange)
}

func (t *Table[K, V]) insertNew(k K, v V) error {
	h := t.home(k)
	free, found := t.findFreeSlot(h)
	if !found {
		return t.capacityFailure(k)
	}

	for free-h >= uint64(t.hopRange) {
		nf, ok := t.displace(h, free)
		if !ok {
			return t.capacityFailure(k)
		}
		free = nf
	}

	home := t.buckets[h]
	home.setBit(uint(free - h))
	t.buckets[free].install(k, v)
	return nil
}

// Insert adds or replaces k's value: if k is already present it is removed
// first, so the subsequent placement always starts from a vacant
// neighborhood slot. Returns a capacity error if no slot could be found or
// displaced within ADD_RANGE.
func (t *Table[K, V]) Insert(k K, v V) error {
	t.Remove(k)
	return t.insertNew(k, v)
}

// Remove deletes k, returning its value if it was present.
func (t *Table[K, V]) Remove(k K) (V, bool) {
	h := t.home(k)
	home := t.buckets[h]
	bits := home.hopInfo.Load()
	for i := 0; i < t.hopRange; i++ {
		if bits&(1<<uint(i)) == 0 {
			continue
		}
		idx := h + uint64(i)
		b := t.buckets[idx]
		if b.keyIs(k) {
			val, ok := b.loadValue()
			b.vacate()
			home.clearBit(uint(i))
			return val, ok
		}
	}
	var zero V
	return zero, false
}
