package container

import (
	"iter"
	"unsafe"

	"github.com/skyline93/fenda/internal/memory"
)

// Map is an open-addressing hash map from K to V using the generic
// three-state slot representation.
type Map[K comparable, V any] = tableMap[K, V, simpleSlot[K, V], *simpleSlot[K, V]]

// PtrMap is a hash map keyed by *E using the intrusive slot representation:
// reserved key values replace the state byte, saving memory and a branch
// per probe. nil keys are not supported.
type PtrMap[E any, V any] = tableMap[*E, V, ptrSlot[E, V], *ptrSlot[E, V]]

// tableMap is the slot-agnostic core shared by Map and PtrMap. The slot
// representation is chosen through the type parameters at compile time, not
// through runtime polymorphism.
//
// A tableMap must not be copied after first use.
type tableMap[K comparable, V any, S any, PS slotPtr[K, V, S]] struct {
	// Slots are empty, occupied or removed. The number of occupied slots is
	// not stored directly; it is occupiedAndRemovedSlots - removedSlots.
	removedSlots            int
	occupiedAndRemovedSlots int

	// usableSlots is the grow threshold: total slots times the load factor.
	usableSlots int

	// slotMask is total slots minus one; the power-of-two sizing makes it a
	// valid mask turning any integer into a slot index.
	slotMask uint64

	hash HashFn[K]
	eq   EqualFn[K]

	slots Array[S]
}

// NewMap returns an empty Map using the default hash and equality.
func NewMap[K comparable, V any](alloc memory.Allocator) *Map[K, V] {
	return NewMapWith[K, V](alloc, HashOf[K], defaultEqual[K])
}

// NewMapWith returns an empty Map with a custom hash and equality. The two
// must agree: eq(a, b) implies hash(a) == hash(b).
func NewMapWith[K comparable, V any](alloc memory.Allocator, hash HashFn[K], eq EqualFn[K]) *Map[K, V] {
	m := &Map[K, V]{hash: hash, eq: eq}
	m.slots.Init(alloc, 1)
	return m
}

// NewPtrMap returns an empty PtrMap. Keys hash by address; the map does not
// copy or own the pointed-to values.
func NewPtrMap[E any, V any](alloc memory.Allocator) *PtrMap[E, V] {
	m := &PtrMap[E, V]{
		hash: func(key *E) uint64 { return uint64(uintptr(unsafe.Pointer(key)) >> 4) },
		eq:   defaultEqual[*E],
	}
	m.slots.Init(alloc, 1)
	return m
}

// Len returns the number of keys in the map.
func (m *tableMap[K, V, S, PS]) Len() int {
	return m.occupiedAndRemovedSlots - m.removedSlots
}

// IsEmpty reports whether the map holds no keys.
func (m *tableMap[K, V, S, PS]) IsEmpty() bool { return m.Len() == 0 }

// Add inserts the key-value pair. When an equal key is already present the
// map is left unchanged and Add returns false. Amortized O(1).
//
// When growth is needed, the new slot array is fully built before the old
// one is touched, so an allocation failure (which aborts anyway, see
// memory.MustMakeSlice) can never leave the map partially migrated.
func (m *tableMap[K, V, S, PS]) Add(key K, value V) bool {
	return m.addWithHash(key, m.hash(key), value)
}

func (m *tableMap[K, V, S, PS]) addWithHash(key K, hash uint64, value V) bool {
	m.ensureCanAdd()
	for ps := newProbe(hash); ; ps.next() {
		for step := uint64(0); step < linearSteps; step++ {
			idx := int((ps.current + step) & m.slotMask)
			slot := PS(m.slots.At(idx))
			if slot.isEmpty() {
				slot.occupy(key, hash, value)
				m.occupiedAndRemovedSlots++
				return true
			}
			if slot.contains(key, m.eq, hash) {
				return false
			}
		}
	}
}

// Get returns the value stored for key.
func (m *tableMap[K, V, S, PS]) Get(key K) (V, bool) {
	hash := m.hash(key)
	for ps := newProbe(hash); ; ps.next() {
		for step := uint64(0); step < linearSteps; step++ {
			idx := int((ps.current + step) & m.slotMask)
			slot := PS(m.slots.At(idx))
			if slot.isEmpty() {
				var zero V
				return zero, false
			}
			if slot.contains(key, m.eq, hash) {
				return *slot.valuePtr(), true
			}
		}
	}
}

// Contains reports whether key is in the map.
func (m *tableMap[K, V, S, PS]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Remove deletes key from the map, leaving a tombstone so probe sequences
// through the slot stay valid. Returns false if the key was absent.
// Tombstones are only reclaimed by the full rehash of the next growth.
func (m *tableMap[K, V, S, PS]) Remove(key K) bool {
	hash := m.hash(key)
	for ps := newProbe(hash); ; ps.next() {
		for step := uint64(0); step < linearSteps; step++ {
			idx := int((ps.current + step) & m.slotMask)
			slot := PS(m.slots.At(idx))
			if slot.isEmpty() {
				return false
			}
			if slot.contains(key, m.eq, hash) {
				slot.remove()
				m.removedSlots++
				return true
			}
		}
	}
}

// Reserve grows the table so that n keys fit without further resizing.
func (m *tableMap[K, V, S, PS]) Reserve(n int) {
	if m.usableSlots < n {
		m.growAndReinsert(n)
	}
}

// Values returns a lazy iterator over the values of all occupied slots, in
// slot order. Invalidated by any mutation of the map.
func (m *tableMap[K, V, S, PS]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for i := 0; i < m.slots.Len(); i++ {
			slot := PS(m.slots.At(i))
			if slot.isOccupied() && !yield(*slot.valuePtr()) {
				return
			}
		}
	}
}

// Keys returns a lazy iterator over all keys. Invalidated by any mutation.
func (m *tableMap[K, V, S, PS]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for i := 0; i < m.slots.Len(); i++ {
			slot := PS(m.slots.At(i))
			if slot.isOccupied() && !yield(slot.keyValue()) {
				return
			}
		}
	}
}

// Items returns a lazy iterator over all key-value pairs. Invalidated by
// any mutation.
func (m *tableMap[K, V, S, PS]) Items() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := 0; i < m.slots.Len(); i++ {
			slot := PS(m.slots.At(i))
			if slot.isOccupied() && !yield(slot.keyValue(), *slot.valuePtr()) {
				return
			}
		}
	}
}

// Free releases the slot storage. The map must not be used afterwards.
func (m *tableMap[K, V, S, PS]) Free() {
	m.slots.Free()
	m.removedSlots = 0
	m.occupiedAndRemovedSlots = 0
	m.usableSlots = 0
	m.slotMask = 0
}

func (m *tableMap[K, V, S, PS]) ensureCanAdd() {
	if m.occupiedAndRemovedSlots >= m.usableSlots {
		m.growAndReinsert(m.Len() + 1)
		if m.occupiedAndRemovedSlots >= m.usableSlots {
			panic("container: map growth left no usable slots")
		}
	}
}

func (m *tableMap[K, V, S, PS]) growAndReinsert(minUsableSlots int) {
	total := totalSlotsFor(max(minUsableSlots, m.Len()+1))
	usable := usableFromTotal(total)
	newMask := uint64(total) - 1

	// When there is nothing to migrate the slot array is reinitialized in
	// place and no rehashing happens.
	if m.Len() == 0 {
		m.slots.Reinitialize(total)
		m.removedSlots = 0
		m.occupiedAndRemovedSlots = 0
		m.usableSlots = usable
		m.slotMask = newMask
		return
	}

	var newSlots Array[S]
	newSlots.Init(m.slots.alloc, total)

	// Full rehash against the new mask. Tombstones are dropped here; this
	// is the only point where the removed count shrinks.
	for i := 0; i < m.slots.Len(); i++ {
		slot := PS(m.slots.At(i))
		if !slot.isOccupied() {
			continue
		}
		key := slot.keyValue()
		m.occupyFirstEmpty(&newSlots, newMask, key, m.hash(key), *slot.valuePtr())
	}
	m.slots.MoveFrom(&newSlots)

	m.occupiedAndRemovedSlots -= m.removedSlots
	m.removedSlots = 0
	m.usableSlots = usable
	m.slotMask = newMask
}

// occupyFirstEmpty inserts a key known to be absent into slots, probing
// with the given mask. Used during rehash only.
func (m *tableMap[K, V, S, PS]) occupyFirstEmpty(slots *Array[S], mask uint64, key K, hash uint64, value V) {
	for ps := newProbe(hash); ; ps.next() {
		for step := uint64(0); step < linearSteps; step++ {
			idx := int((ps.current + step) & mask)
			slot := PS(slots.At(idx))
			if slot.isEmpty() {
				slot.occupy(key, hash, value)
				return
			}
		}
	}
}
