// Package container provides the foundation containers: an open-addressing
// hash map (Map, PtrMap), a growable Vector and fixed-size Array with inline
// small-buffer storage, and a VectorMap combining the two for deterministic
// iteration order.
//
// Containers allocate through a memory.Allocator value, only once their
// inline capacity is exceeded. They perform no internal synchronization:
// concurrent mutation of one instance is out of contract and callers must
// serialize access externally. None of them may be copied after first use;
// the inline buffer lives inside the object itself.
package container

// inlineBufferCapacity is the number of elements a container stores inside
// itself before falling back to the allocator. Go has no value-generic
// array sizes, so unlike the C++ original the capacity is one fixed
// constant rather than a per-type parameter.
const inlineBufferCapacity = 4
