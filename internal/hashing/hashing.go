// Package hashing provides the shard/bucket hasher seam lotable and
// hoptable share. The default implementation is hash/maphash via
// maphash.Comparable, which hashes any comparable value directly without
// requiring callers to supply a byte/string encoding for their key type.
package hashing

import "hash/maphash"

// Hasher produces a 64-bit digest for a comparable key. Callers may supply
// their own (e.g. to pin a fixed seed for reproducible tests, or to hash
// only part of a composite key).
type Hasher[K comparable] interface {
	Hash(k K) uint64
}

// Default returns a Hasher seeded once at construction time, stable for the
// lifetime of the process.
func Default[K comparable]() Hasher[K] {
	return maphashHasher[K]{seed: maphash.MakeSeed()}
}

type maphashHasher[K comparable] struct {
	seed maphash.Seed
}

func (h maphashHasher[K]) Hash(k K) uint64 {
	return maphash.Comparable(h.seed, k)
}
