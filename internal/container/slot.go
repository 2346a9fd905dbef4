package container

import "unsafe"

// A map slot is a three-state machine: Empty -> Occupied -> Removed, and
// Occupied -> Removed only. A vacated slot never becomes Empty again;
// tombstones keep probe sequences through them valid for keys inserted
// further along the same sequence.
//
// slotOps is the capability every slot representation provides. The hash
// parameters exist so representations that cache hashes can use them; the
// ones here recompute instead.
type slotOps[K, V any] interface {
	isEmpty() bool
	isOccupied() bool
	// contains is true only for an Occupied slot holding an equal key; a
	// Removed or Empty slot always answers false and probing continues past
	// it.
	contains(key K, eq EqualFn[K], hash uint64) bool
	// occupy must only be called on a non-Occupied slot.
	occupy(key K, hash uint64, value V)
	// remove turns an Occupied slot into a tombstone, dropping key and
	// value.
	remove()
	keyValue() K
	valuePtr() *V
}

// slotPtr ties a slot representation S to its pointer type implementing
// slotOps, so the map core can be specialized per representation at compile
// time.
type slotPtr[K, V, S any] interface {
	*S
	slotOps[K, V]
}

type slotState uint8

const (
	slotEmpty slotState = iota
	slotOccupied
	slotRemoved
)

// simpleSlot is the generic representation: an explicit one-byte state plus
// key and value storage. The zero value is an Empty slot.
type simpleSlot[K, V any] struct {
	state slotState
	key   K
	value V
}

func (s *simpleSlot[K, V]) isEmpty() bool    { return s.state == slotEmpty }
func (s *simpleSlot[K, V]) isOccupied() bool { return s.state == slotOccupied }

func (s *simpleSlot[K, V]) contains(key K, eq EqualFn[K], hash uint64) bool {
	if s.state == slotOccupied {
		return eq(key, s.key)
	}
	return false
}

func (s *simpleSlot[K, V]) occupy(key K, hash uint64, value V) {
	if s.state == slotOccupied {
		panic("container: occupy of an occupied slot")
	}
	s.value = value
	s.key = key
	s.state = slotOccupied
}

func (s *simpleSlot[K, V]) remove() {
	if s.state != slotOccupied {
		panic("container: remove of a non-occupied slot")
	}
	var zeroK K
	var zeroV V
	s.key = zeroK
	s.value = zeroV
	s.state = slotRemoved
}

func (s *simpleSlot[K, V]) keyValue() K  { return s.key }
func (s *simpleSlot[K, V]) valuePtr() *V { return &s.value }

// ptrRemovedSentinel is the reserved key marking a tombstone in ptrSlot.
var ptrRemovedSentinel byte

// ptrSlot is the intrusive representation for pointer keys: two reserved
// key values encode the slot state, so no separate state byte is needed and
// the occupancy checks are plain pointer comparisons. nil marks an Empty
// slot (the zero value), a private sentinel address marks a tombstone;
// consequently nil is not a legal key.
type ptrSlot[E, V any] struct {
	key   unsafe.Pointer
	value V
}

func ptrSlotRemoved() unsafe.Pointer { return unsafe.Pointer(&ptrRemovedSentinel) }

func (s *ptrSlot[E, V]) isEmpty() bool { return s.key == nil }

func (s *ptrSlot[E, V]) isOccupied() bool {
	return s.key != nil && s.key != ptrSlotRemoved()
}

func (s *ptrSlot[E, V]) contains(key *E, eq EqualFn[*E], hash uint64) bool {
	return s.key == unsafe.Pointer(key) && key != nil
}

func (s *ptrSlot[E, V]) occupy(key *E, hash uint64, value V) {
	if s.isOccupied() {
		panic("container: occupy of an occupied slot")
	}
	if key == nil {
		panic("container: nil key in pointer map")
	}
	s.value = value
	s.key = unsafe.Pointer(key)
}

func (s *ptrSlot[E, V]) remove() {
	if !s.isOccupied() {
		panic("container: remove of a non-occupied slot")
	}
	var zeroV V
	s.value = zeroV
	s.key = ptrSlotRemoved()
}

func (s *ptrSlot[E, V]) keyValue() *E { return (*E)(s.key) }
func (s *ptrSlot[E, V]) valuePtr() *V { return &s.value }
