package container

import (
	"iter"

	"github.com/skyline93/fenda/internal/memory"
)

// VectorMap is a map that remembers insertion order. Values live densely
// packed in a Vector and a hash map translates keys to indices, so ordered
// iteration is a plain slice walk while lookup stays O(1).
//
// Values cannot be removed individually; the dense index assignment would
// break. Free drops the whole map.
type VectorMap[K comparable, V any] struct {
	indices *Map[K, int]
	values  Vector[V]
}

// NewVectorMap returns an empty VectorMap.
func NewVectorMap[K comparable, V any](alloc memory.Allocator) *VectorMap[K, V] {
	vm := &VectorMap[K, V]{indices: NewMap[K, int](alloc)}
	vm.values.Init(alloc)
	return vm
}

// Len returns the number of keys in the map.
func (vm *VectorMap[K, V]) Len() int { return vm.values.Len() }

// IsEmpty reports whether the map holds no keys.
func (vm *VectorMap[K, V]) IsEmpty() bool { return vm.values.IsEmpty() }

// Add appends value under key. When the key is already present the map is
// left exactly as it was and Add returns false.
func (vm *VectorMap[K, V]) Add(key K, value V) bool {
	idx := vm.values.AppendAndGetIndex(value)
	if !vm.indices.Add(key, idx) {
		// Roll the append back so a rejected duplicate leaves no trace.
		vm.values.RemoveLast()
		return false
	}
	return true
}

// Get returns the value stored for key.
func (vm *VectorMap[K, V]) Get(key K) (V, bool) {
	idx, ok := vm.indices.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return vm.values.Get(idx), true
}

// At returns a pointer to the value stored for key, or nil when absent.
// The pointer stays valid until the next Add.
func (vm *VectorMap[K, V]) At(key K) *V {
	idx, ok := vm.indices.Get(key)
	if !ok {
		return nil
	}
	return vm.values.At(idx)
}

// Contains reports whether key is in the map.
func (vm *VectorMap[K, V]) Contains(key K) bool { return vm.indices.Contains(key) }

// IndexOf returns the insertion index of key.
func (vm *VectorMap[K, V]) IndexOf(key K) (int, bool) { return vm.indices.Get(key) }

// ValueAt returns the value at insertion index i.
func (vm *VectorMap[K, V]) ValueAt(i int) V { return vm.values.Get(i) }

// Slice returns the values in insertion order. The slice aliases the map's
// storage and is invalidated by the next Add.
func (vm *VectorMap[K, V]) Slice() []V { return vm.values.Slice() }

// Values returns a lazy iterator over the values in insertion order.
// Invalidated by any mutation of the map.
func (vm *VectorMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range vm.values.Slice() {
			if !yield(v) {
				return
			}
		}
	}
}

// Keys returns a lazy iterator over the keys. The order is the hash map's
// slot order, not insertion order.
func (vm *VectorMap[K, V]) Keys() iter.Seq[K] { return vm.indices.Keys() }

// Reserve grows both the index map and the value storage for n entries.
func (vm *VectorMap[K, V]) Reserve(n int) {
	vm.indices.Reserve(n)
	vm.values.Reserve(n)
}

// Free releases all storage. The map must not be used afterwards.
func (vm *VectorMap[K, V]) Free() {
	vm.indices.Free()
	vm.values.Free()
}
