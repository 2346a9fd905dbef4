package memory

import (
	"unsafe"
)

// The typed helpers allocate real Go objects and route their accounting
// through the backend. Carving typed values out of raw byte blocks would
// hide interior pointers from the garbage collector, so the payloads come
// from new/make while the backend tracks site, length, kind and lifetime.
// Overrun protection for typed storage is provided by Go's bounds checks;
// the canary machinery applies to raw blocks only.

// New allocates and tracks a single value of type T. The allocation is
// tagged new-style: it must be released with Delete, releasing it through
// the malloc-style path is a detected usage error. Allocation failure is
// escalated to a fatal abort; a nil object pointer cannot be returned
// generically.
func New[T any](a Allocator, site string) *T {
	ptr := new(T)
	size := int(unsafe.Sizeof(*ptr))
	_, err := a.Backend().Register(size, site, KindNew, uintptr(unsafe.Pointer(ptr)))
	if err != nil {
		fatalf("memory: new of %d bytes at %s failed: %v", size, site, err)
	}
	return ptr
}

// Delete releases a value allocated with New. Deleting nil is a no-op.
func Delete[T any](a Allocator, ptr *T) {
	if ptr == nil {
		return
	}
	size := int(unsafe.Sizeof(*ptr))
	_ = a.Backend().Release(uintptr(unsafe.Pointer(ptr)), size, KindNew)
}

// MakeSlice allocates a tracked slice of n elements of type T. The returned
// block must be passed back to FreeSlice exactly once. A count that
// overflows the native word size aborts the process.
func MakeSlice[T any](a Allocator, n int, site string) ([]T, *Block, error) {
	var zero T
	total, ok := sizeSafeMultiply(uintptr(n), unsafe.Sizeof(zero))
	if !ok {
		reportf("MakeSlice aborted due to integer overflow: len=%dx%d in %s, total %d",
			n, unsafe.Sizeof(zero), site, a.Backend().InUse())
		fatalf("memory: slice allocation overflow at %s", site)
		return nil, nil, ErrOverflow
	}
	s := make([]T, n)
	b, err := a.Backend().Register(int(total), site, KindMalloc, uintptr(unsafe.Pointer(unsafe.SliceData(s))))
	if err != nil {
		return nil, nil, err
	}
	return s, b, nil
}

// MustMakeSlice is MakeSlice with mem_new failure semantics: allocation
// failure aborts with diagnostics instead of returning an error. Containers
// grow through it.
func MustMakeSlice[T any](a Allocator, n int, site string) ([]T, *Block) {
	s, b, err := MakeSlice[T](a, n, site)
	if err != nil {
		fatalf("memory: slice of %d elements at %s failed: %v", n, site, err)
	}
	return s, b
}

// FreeSlice releases a slice block obtained from MakeSlice.
func FreeSlice(a Allocator, b *Block) {
	if b == nil {
		return
	}
	_ = a.Backend().FreeRaw(b, KindMalloc)
}

// MallocArray allocates a raw block of count*elemSize bytes. An overflowing
// product aborts the process: silently wrapping would under-allocate and is
// treated as a security-relevant fatal class, not a recoverable error.
func MallocArray(a Allocator, count, elemSize int, site string) (*Block, error) {
	total, ok := sizeSafeMultiply(uintptr(count), uintptr(elemSize))
	if !ok {
		reportf("MallocArray aborted due to integer overflow: len=%dx%d in %s, total %d",
			count, elemSize, site, a.Backend().InUse())
		fatalf("memory: array allocation overflow at %s", site)
		return nil, ErrOverflow
	}
	return Alloc(a, int(total), minAlignment, site)
}
