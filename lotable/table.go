// Package lotable implements LOTable, a sharded transactional hash table:
// each shard is a txn.TVar wrapping a cell.Cell-backed immutable-style map
// container. Insert, Remove, Get, ContainsKey, ReplaceWith and each shard
// of Clear run as a transaction over one shard TVar, inheriting the table's
// configured isolation level; Len, Iter, Keys and Values read each shard's
// published snapshot outside any transaction.
package lotable

import (
	"github.com/lever-go/stm/txn"
)

// Table is a fixed-shard-count transactional hash map. The zero value is not
// usable; construct one with WithCapacity.
type Table[K comparable, V any] struct {
	shards []*txn.TVar[container[K, V]]
	mgr    *txn.Manager
	cfg    config[K]
}

// WithCapacity constructs a Table with n shards, each an independent
// txn.TVar so concurrent operations against different shards never
// contend on the same commit lock.
func WithCapacity[K comparable, V any](n int, opts ...Option[K]) *Table[K, V] {
	if n <= 0 {
		n = 1
	}
	cfg := defaultConfig[K]()
	for _, o := range opts {
		o(&cfg)
	}

	var mgrOpts []txn.ManagerOption
	if cfg.metrics != nil {
		mgrOpts = append(mgrOpts, txn.WithMetrics(conflictAdapter{cfg.metrics}))
	}
	mgr := txn.NewManager(mgrOpts...)
	if _, err := mgr.Build(txn.Config{Concurrency: txn.Optimistic, Isolation: cfg.isolation, Timeout: cfg.timeout}); err != nil {
		// Surface an unsupported isolation choice at construction time
		// rather than on every operation.
		panic(err)
	}
	shards := make([]*txn.TVar[container[K, V]], n)
	for i := range shards {
		shards[i] = txn.NewTVar(mgr, newContainer[K, V]())
	}

	return &Table[K, V]{shards: shards, mgr: mgr, cfg: cfg}
}

// TxManager returns the Manager backing every shard's TVar, so callers can
// compose LOTable operations with user-defined TVars inside one transaction.
func (t *Table[K, V]) TxManager() *txn.Manager { return t.mgr }

func (t *Table[K, V]) shardFor(k K) *txn.TVar[container[K, V]] {
	idx := t.cfg.hasher.Hash(k) % uint64(len(t.shards))
	return t.shards[idx]
}

func (t *Table[K, V]) newTxn() *txn.Txn {
	tx, err := t.mgr.Build(txn.Config{
		Concurrency: txn.Optimistic,
		Isolation:   t.cfg.isolation,
		Timeout:     t.cfg.timeout,
	})
	if err != nil {
		// The same configuration was validated in WithCapacity.
		panic(err)
	}
	return tx
}

// Insert adds or replaces the value for k, returning the previous value if
// present (upsert semantics).
func (t *Table[K, V]) Insert(k K, v V) (V, bool) {
	shard := t.shardFor(k)
	tx := t.newTxn()
	type result struct {
		old V
		ok  bool
	}
	r, _ := txn.Begin(tx, func(tt *txn.Txn) result {
		c := txn.Read(tt, shard)
		old, ok := c.get(k)
		txn.Write(tt, shard, c.with(k, v))
		return result{old, ok}
	})
	return r.old, r.ok
}

// Remove deletes k, returning its value if present.
func (t *Table[K, V]) Remove(k K) (V, bool) {
	shard := t.shardFor(k)
	tx := t.newTxn()
	type result struct {
		old V
		ok  bool
	}
	r, _ := txn.Begin(tx, func(tt *txn.Txn) result {
		c := txn.Read(tt, shard)
		old, ok := c.get(k)
		if ok {
			txn.Write(tt, shard, c.without(k))
		}
		return result{old, ok}
	})
	return r.old, r.ok
}

// Get returns the value for k, transactionally consistent with any
// concurrent commit ordering.
func (t *Table[K, V]) Get(k K) (V, bool) {
	shard := t.shardFor(k)
	tx := t.newTxn()
	type result struct {
		v  V
		ok bool
	}
	r, _ := txn.Begin(tx, func(tt *txn.Txn) result {
		c := txn.Read(tt, shard)
		v, ok := c.get(k)
		return result{v, ok}
	})
	return r.v, r.ok
}

// ContainsKey reports whether k is present.
func (t *Table[K, V]) ContainsKey(k K) bool {
	_, ok := t.Get(k)
	return ok
}

// ReplaceWith atomically applies f to the current (value, present) pair for
// k and installs the result, returning the new value. It is the table-level
// analogue of cell.Cell.ReplaceWith, run inside the shard's transaction so
// the read-modify-write is validated as a unit. f may run more than once if
// the transaction retries, so it should be free of side effects.
func (t *Table[K, V]) ReplaceWith(k K, f func(old V, present bool) V) V {
	shard := t.shardFor(k)
	tx := t.newTxn()
	newVal, _ := txn.Begin(tx, func(tt *txn.Txn) V {
		c := txn.Read(tt, shard)
		old, ok := c.get(k)
		nv := f(old, ok)
		txn.Write(tt, shard, c.with(k, nv))
		return nv
	})
	return newVal
}

// Len returns the total number of entries across all shards. It is not a
// cross-shard snapshot: a concurrent insert/remove may or may not be
// reflected in the count.
func (t *Table[K, V]) Len() int {
	total := 0
	for _, shard := range t.shards {
		total += shard.GetData().len()
	}
	return total
}

// Clear removes every entry from every shard.
func (t *Table[K, V]) Clear() {
	for _, shard := range t.shards {
		tx := t.newTxn()
		_, _ = txn.Begin(tx, func(tt *txn.Txn) any {
			txn.Write(tt, shard, newContainer[K, V]())
			return nil
		})
	}
}

// Iter invokes fn for every (key, value) pair currently stored, shard by
// shard. Iteration is consistent within a shard but not across shards: a
// write concurrent with Iter may or may not be observed.
func (t *Table[K, V]) Iter(fn func(K, V) bool) {
	for _, shard := range t.shards {
		c := shard.GetData()
		for k, v := range c.data {
			if !fn(k, v) {
				return
			}
		}
	}
}

// Keys returns every key currently stored, with the same per-shard (not
// cross-shard) consistency as Iter.
func (t *Table[K, V]) Keys() []K {
	keys := make([]K, 0, t.Len())
	t.Iter(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Values returns every value currently stored, with the same per-shard (not
// cross-shard) consistency as Iter.
func (t *Table[K, V]) Values() []V {
	vals := make([]V, 0, t.Len())
	t.Iter(func(_ K, v V) bool {
		vals = append(vals, v)
		return true
	})
	return vals
}
