package container

import (
	"fmt"

	"github.com/skyline93/fenda/internal/memory"
)

// Vector is a dynamically growing contiguous sequence of T with inline
// small-buffer storage: as long as it holds at most inlineBufferCapacity
// elements no allocation happens. Append is amortized O(1); growth moves
// every live element into a block at least twice the old capacity, so total
// copy work stays linear in the number of appends.
//
// The zero value is not usable; construct with NewVector or Init.
type Vector[T any] struct {
	size   int
	heap   []T
	block  *memory.Block
	alloc  memory.Allocator
	inline [inlineBufferCapacity]T
}

// NewVector returns an empty vector drawing from alloc.
func NewVector[T any](alloc memory.Allocator) *Vector[T] {
	v := &Vector[T]{}
	v.Init(alloc)
	return v
}

// Init prepares a zero-value Vector in place, for use as a struct field.
func (v *Vector[T]) Init(alloc memory.Allocator) {
	v.alloc = alloc
	v.size = 0
	v.heap = nil
	v.block = nil
}

func (v *Vector[T]) storage() []T {
	if v.block != nil {
		return v.heap
	}
	return v.inline[:]
}

// Len returns the number of live elements.
func (v *Vector[T]) Len() int { return v.size }

// Cap returns how many elements fit before the next growth.
func (v *Vector[T]) Cap() int { return len(v.storage()) }

// IsInline reports whether the elements live in the Vector's own buffer.
// Once an append overflows the inline capacity the vector transitions to
// heap storage and never returns.
func (v *Vector[T]) IsInline() bool { return v.block == nil }

// IsEmpty reports whether the vector holds no elements.
func (v *Vector[T]) IsEmpty() bool { return v.size == 0 }

// Get returns the element at index i.
func (v *Vector[T]) Get(i int) T {
	v.checkIndex(i)
	return v.storage()[i]
}

// At returns a pointer to the element at index i, valid until the next
// growth.
func (v *Vector[T]) At(i int) *T {
	v.checkIndex(i)
	return &v.storage()[i]
}

// Set replaces the element at index i.
func (v *Vector[T]) Set(i int, value T) {
	v.checkIndex(i)
	v.storage()[i] = value
}

// Slice exposes the live elements. Invalidated by any mutation.
func (v *Vector[T]) Slice() []T { return v.storage()[:v.size] }

// Append adds value at the end, growing if necessary.
func (v *Vector[T]) Append(value T) {
	v.ensureSpaceForOne()
	v.AppendUnchecked(value)
}

// AppendUnchecked adds value at the end. The caller must have ensured spare
// capacity beforehand.
func (v *Vector[T]) AppendUnchecked(value T) {
	s := v.storage()
	if v.size >= len(s) {
		panic("container: append without spare capacity")
	}
	s[v.size] = value
	v.size++
}

// AppendAndGetIndex adds value and returns the index it now lives at.
func (v *Vector[T]) AppendAndGetIndex(value T) int {
	idx := v.size
	v.Append(value)
	return idx
}

// RemoveLast removes and returns the final element.
func (v *Vector[T]) RemoveLast() T {
	if v.size == 0 {
		panic("container: remove from empty vector")
	}
	s := v.storage()
	v.size--
	value := s[v.size]
	var zero T
	s[v.size] = zero
	return value
}

// Reserve grows the capacity to at least minCapacity without changing the
// contents.
func (v *Vector[T]) Reserve(minCapacity int) {
	if minCapacity > v.Cap() {
		v.reallocToAtLeast(minCapacity)
	}
}

// Clear drops all elements but keeps the capacity.
func (v *Vector[T]) Clear() {
	clear(v.storage()[:v.size])
	v.size = 0
}

// Free releases the heap block, if any, and drops all elements.
func (v *Vector[T]) Free() {
	v.Clear()
	if v.block != nil {
		memory.FreeSlice(v.alloc, v.block)
		v.block = nil
		v.heap = nil
	}
}

// MoveFrom steals the contents of other, leaving it empty. The move is O(1)
// for heap storage (pointer swap) but O(n) for inline storage, which lives
// inside other and cannot be stolen by pointer.
func (v *Vector[T]) MoveFrom(other *Vector[T]) {
	v.Free()
	v.alloc = other.alloc
	v.size = other.size
	if other.block == nil {
		v.inline = other.inline
	} else {
		v.heap = other.heap
		v.block = other.block
	}
	other.size = 0
	other.heap = nil
	other.block = nil
	clear(other.inline[:])
}

func (v *Vector[T]) ensureSpaceForOne() {
	if v.size >= v.Cap() {
		v.reallocToAtLeast(v.size + 1)
	}
}

func (v *Vector[T]) reallocToAtLeast(minCapacity int) {
	if v.Cap() >= minCapacity {
		return
	}
	newCapacity := max(minCapacity, v.Cap()*2)
	newHeap, newBlock := memory.MustMakeSlice[T](v.alloc, newCapacity, "container.Vector")

	old := v.storage()
	copy(newHeap, old[:v.size])
	clear(old[:v.size])
	if v.block != nil {
		memory.FreeSlice(v.alloc, v.block)
	}
	v.heap = newHeap
	v.block = newBlock
}

func (v *Vector[T]) checkIndex(i int) {
	if i < 0 || i >= v.size {
		panic(fmt.Sprintf("container: vector index %d out of range [0:%d]", i, v.size))
	}
}
