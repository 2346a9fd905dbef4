package container

import (
	"fmt"

	"github.com/skyline93/fenda/internal/memory"
)

// Array is a fixed-size sequence of T whose length is chosen at
// construction and never changes. Sizes up to the inline capacity live
// inside the Array itself; larger sizes take exactly one allocator block,
// never more than requested.
//
// Prefer Array over Vector when the element count is known up front: it
// states the intent and it never over-allocates.
type Array[T any] struct {
	data   []T
	block  *memory.Block
	alloc  memory.Allocator
	inline [inlineBufferCapacity]T
}

// NewArray returns an array of size default-initialized elements.
func NewArray[T any](alloc memory.Allocator, size int) *Array[T] {
	a := &Array[T]{}
	a.Init(alloc, size)
	return a
}

// Init prepares a zero-value Array in place, for use as a struct field.
func (a *Array[T]) Init(alloc memory.Allocator, size int) {
	if size < 0 {
		panic(fmt.Sprintf("container: negative array size %d", size))
	}
	a.alloc = alloc
	if size <= inlineBufferCapacity {
		a.data = a.inline[:size]
		return
	}
	a.data, a.block = memory.MustMakeSlice[T](alloc, size, "container.Array")
}

// Reinitialize discards all elements and replaces the storage with size
// fresh default-initialized elements.
func (a *Array[T]) Reinitialize(size int) {
	a.release()
	a.Init(a.alloc, size)
}

// Len returns the fixed element count.
func (a *Array[T]) Len() int { return len(a.data) }

// IsInline reports whether the elements live in the Array's own buffer.
func (a *Array[T]) IsInline() bool { return a.block == nil }

// Get returns the element at index i.
func (a *Array[T]) Get(i int) T {
	a.checkIndex(i)
	return a.data[i]
}

// At returns a pointer to the element at index i.
func (a *Array[T]) At(i int) *T {
	a.checkIndex(i)
	return &a.data[i]
}

// Set replaces the element at index i.
func (a *Array[T]) Set(i int, value T) {
	a.checkIndex(i)
	a.data[i] = value
}

// Slice exposes the elements as a slice. The slice is invalidated by
// Reinitialize and Free.
func (a *Array[T]) Slice() []T { return a.data }

// MoveFrom steals the contents of other, leaving it reset. The move is O(1)
// for heap storage (pointer swap) but O(n) for inline storage, which lives
// inside other and cannot be stolen by pointer.
func (a *Array[T]) MoveFrom(other *Array[T]) {
	a.release()
	a.alloc = other.alloc
	if other.block == nil {
		a.inline = other.inline
		a.data = a.inline[:len(other.data)]
	} else {
		a.data = other.data
		a.block = other.block
	}
	other.data = nil
	other.block = nil
	clear(other.inline[:])
}

// Free releases the heap block, if any, and drops all elements. The Array
// must be re-Init'ed before further use.
func (a *Array[T]) Free() {
	a.release()
	a.data = nil
}

func (a *Array[T]) release() {
	clear(a.data) // drop element references before the storage goes
	if a.block != nil {
		memory.FreeSlice(a.alloc, a.block)
		a.block = nil
	}
}

func (a *Array[T]) checkIndex(i int) {
	if i < 0 || i >= len(a.data) {
		panic(fmt.Sprintf("container: array index %d out of range [0:%d]", i, len(a.data)))
	}
}
