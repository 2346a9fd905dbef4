package memory

// registry is the guarded backend's book of live blocks: an index-stable
// slab of entries with generation counters, threaded onto an
// insertion-ordered list. Handles (index, generation) survive in block
// headers, so stale or forged handles are recognized instead of corrupting
// neighboring entries. Insert, remove and handle validation are O(1);
// enumeration for leak reports walks the order list.
//
// The registry itself is not synchronized; the guarded backend serializes
// access behind its mutex.
type registry struct {
	entries  []regEntry
	freeHead int32
	head     int32
	tail     int32
	count    int
}

type regEntry struct {
	gen  uint32
	live bool
	info BlockInfo
	blk  *Block // owning block, used to re-verify raw canaries
	prev int32
	next int32
}

const regNone = int32(-1)

func newRegistry() *registry {
	return &registry{freeHead: regNone, head: regNone, tail: regNone}
}

// insert appends a new live entry and returns its handle.
func (r *registry) insert(info BlockInfo, blk *Block) (int32, uint32) {
	var idx int32
	if r.freeHead != regNone {
		idx = r.freeHead
		r.freeHead = r.entries[idx].next
	} else {
		r.entries = append(r.entries, regEntry{})
		idx = int32(len(r.entries) - 1)
	}
	e := &r.entries[idx]
	e.gen++
	e.live = true
	e.info = info
	e.blk = blk
	e.prev = r.tail
	e.next = regNone

	if r.tail != regNone {
		r.entries[r.tail].next = idx
	} else {
		r.head = idx
	}
	r.tail = idx
	r.count++
	return idx, e.gen
}

// lookup resolves a handle to its live entry, or nil if the handle is stale
// (freed) or was never issued.
func (r *registry) lookup(idx int32, gen uint32) *regEntry {
	if idx < 0 || int(idx) >= len(r.entries) {
		return nil
	}
	e := &r.entries[idx]
	if !e.live || e.gen != gen {
		return nil
	}
	return e
}

// remove unlinks a live entry and recycles its slot. The generation stays
// bumped-on-insert, so the freed handle can never resolve again.
func (r *registry) remove(idx int32) {
	e := &r.entries[idx]
	if e.prev != regNone {
		r.entries[e.prev].next = e.next
	} else {
		r.head = e.next
	}
	if e.next != regNone {
		r.entries[e.next].prev = e.prev
	} else {
		r.tail = e.prev
	}
	e.live = false
	e.blk = nil
	e.info = BlockInfo{}
	e.next = r.freeHead
	r.freeHead = idx
	r.count--
}

// forEach visits live entries in insertion order.
func (r *registry) forEach(fn func(*regEntry)) {
	for idx := r.head; idx != regNone; idx = r.entries[idx].next {
		fn(&r.entries[idx])
	}
}
