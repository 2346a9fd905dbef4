package container

import (
	"hash/maphash"
)

// HashFn produces the 64-bit hash of a key. For good probe behavior the
// hash should spread its entropy across the whole value; equal keys must
// hash equal.
type HashFn[K any] func(K) uint64

// EqualFn reports whether two keys are equal. It must be consistent with
// the hash function in use.
type EqualFn[K any] func(a, b K) bool

// hashSeed is fixed per process so that hashes stay comparable across every
// table in it, like the built-in map's per-process seed.
var hashSeed = maphash.MakeSeed()

// HashOf is the default hash for comparable keys.
func HashOf[K comparable](key K) uint64 {
	return maphash.Comparable(hashSeed, key)
}

func defaultEqual[K comparable](a, b K) bool { return a == b }
