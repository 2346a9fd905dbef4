package memory

import (
	"encoding/binary"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
)

// Canary tags bracketing every raw payload. A freed block has its tags
// overwritten with the freed sentinel so a second free is recognized.
// Stored little-endian; together the live tags spell out "MEMORYBLOCK!".
const (
	memTag1    = uint32('M') | uint32('E')<<8 | uint32('M')<<16 | uint32('O')<<24
	memTag2    = uint32('R') | uint32('Y')<<8 | uint32('B')<<16 | uint32('L')<<24
	memTag3    = uint32('O') | uint32('C')<<8 | uint32('K')<<16 | uint32('!')<<24
	memTagFree = uint32('F') | uint32('R')<<8 | uint32('E')<<16 | uint32('E')<<24
)

// Raw block layout: [pad][tag1|idx|gen|tag2][payload][tag3]. The handle
// stored in the header lets a free recover its registry entry without any
// lookup structure, and lets a forged or stale pointer be recognized.
const (
	headerSize = 16
	tailSize   = 4
)

var le = binary.LittleEndian

// Guarded is the debug backend. Every allocation is recorded in an
// insertion-ordered registry, raw payloads are bracketed by canary tags, and
// misuse (double free, wrong-style free, overruns) is detected and reported
// per allocation site. All registry mutation is serialized behind a single
// mutex; the critical sections are short and bounded.
type Guarded struct {
	usage usage
	mu    sync.Mutex
	reg   *registry
	// ptrs maps typed-object addresses back to registry entries. Raw blocks
	// recover their handle from the header instead.
	ptrs map[uintptr]int32
}

// NewGuarded returns an empty guarded backend.
func NewGuarded() *Guarded {
	return &Guarded{reg: newRegistry(), ptrs: make(map[uintptr]int32)}
}

func (g *Guarded) Name() string { return "guarded" }

// SetLimit sets an optional byte budget; allocations beyond it fail with
// ErrOutOfMemory. Zero means unlimited.
func (g *Guarded) SetLimit(limit int64) { g.usage.limit.Store(limit) }

func (g *Guarded) InUse() int64  { return g.usage.inUse.Load() }
func (g *Guarded) Peak() int64   { return g.usage.peak.Load() }
func (g *Guarded) Blocks() int64 { return g.usage.blocks.Load() }

func (g *Guarded) AllocRaw(size, align int, site string, kind AllocKind) (*Block, error) {
	align = checkAlignment(align)
	length := roundUp4(size)
	if !g.usage.reserve(int64(length)) {
		reportf("Alloc returns nil: len=%d in %s, total %d", length, site, g.InUse())
		return nil, errors.Wrapf(ErrOutOfMemory, "raw alloc of %d bytes at %s", length, site)
	}

	raw := make([]byte, headerSize+length+tailSize+align-1)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	pad := int((uintptr(align) - (base+headerSize)%uintptr(align)) % uintptr(align))
	off := pad + headerSize

	b := &Block{
		len:  length,
		off:  off,
		site: site,
		kind: kind,
		addr: base + uintptr(off),
		raw:  raw,
	}

	g.mu.Lock()
	b.idx, b.gen = g.reg.insert(BlockInfo{Site: site, Len: length, Addr: b.addr, Kind: kind}, b)
	hdr := raw[pad:off]
	le.PutUint32(hdr[0:], memTag1)
	le.PutUint32(hdr[4:], uint32(b.idx))
	le.PutUint32(hdr[8:], b.gen)
	le.PutUint32(hdr[12:], memTag2)
	le.PutUint32(raw[off+length:], memTag3)
	g.mu.Unlock()

	return b, nil
}

func (g *Guarded) FreeRaw(b *Block, kind AllocKind) error {
	if b == nil {
		reportBlockError("free", "attempt to free nil block")
		return nil
	}
	if leakDetectorHasRun.Load() {
		reportBlockError(b.site, freeAfterLeakDetectionMessage)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if b.raw == nil {
		// Typed slab registered through Register; no canaries to verify.
		return g.releaseLocked(b.idx, b.gen, kind)
	}

	if b.kind == KindNew && kind != KindNew {
		reportf("Attempt to use malloc-style free on block %s allocated new-style", b.site)
	}

	hdr := b.raw[b.off-headerSize : b.off]
	t1 := le.Uint32(hdr[0:])
	t2 := le.Uint32(hdr[12:])

	if t1 == memTagFree && t2 == memTagFree {
		reportBlockError(b.site, "double free")
		return errors.Errorf("memory: double free of block %s", b.site)
	}

	e := g.reg.lookup(b.idx, b.gen)
	if t1 != memTag1 || t2 != memTag2 || e == nil {
		reportBlockError(b.site, "error in header")
		g.reportCorruptLocked(b)
		return errors.Errorf("memory: corrupt header on block %s", b.site)
	}

	if le.Uint32(b.raw[b.off+b.len:]) != memTag3 {
		// The payload ran past its end. The block stays in the registry;
		// recovery is best-effort once tags are inconsistent.
		reportBlockError(b.site, "end corrupt")
		g.reportCorruptLocked(b)
		return errors.Errorf("memory: end corrupt on block %s", b.site)
	}

	le.PutUint32(hdr[0:], memTagFree)
	le.PutUint32(hdr[12:], memTagFree)
	le.PutUint32(b.raw[b.off+b.len:], memTagFree)
	g.reg.remove(b.idx)
	g.usage.release(int64(b.len))
	return nil
}

func (g *Guarded) Register(size int, site string, kind AllocKind, addr uintptr) (*Block, error) {
	length := roundUp4(size)
	if !g.usage.reserve(int64(length)) {
		reportf("Alloc returns nil: len=%d in %s, total %d", length, site, g.InUse())
		return nil, errors.Wrapf(ErrOutOfMemory, "alloc of %d bytes at %s", length, site)
	}
	b := &Block{len: length, site: site, kind: kind, addr: addr}

	g.mu.Lock()
	b.idx, b.gen = g.reg.insert(BlockInfo{Site: site, Len: length, Addr: addr, Kind: kind}, b)
	g.ptrs[addr] = b.idx
	g.mu.Unlock()
	return b, nil
}

func (g *Guarded) Release(addr uintptr, size int, kind AllocKind) error {
	if leakDetectorHasRun.Load() {
		reportBlockError("free", freeAfterLeakDetectionMessage)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	idx, ok := g.ptrs[addr]
	if !ok {
		reportBlockError("free", "pointer not in memlist")
		return errors.Errorf("memory: free of unknown pointer %#x", addr)
	}
	e := &g.reg.entries[idx]
	return g.releaseLocked(idx, e.gen, kind)
}

// releaseLocked removes one registered entry, validating its handle and the
// free style. Callers hold g.mu.
func (g *Guarded) releaseLocked(idx int32, gen uint32, kind AllocKind) error {
	e := g.reg.lookup(idx, gen)
	if e == nil {
		reportBlockError("free", "double free")
		return errors.New("memory: double free of registered block")
	}
	if e.info.Kind == KindNew && kind != KindNew {
		reportf("Attempt to use malloc-style free on block %s allocated new-style", e.info.Site)
	}
	if e.info.Kind != KindNew && kind == KindNew {
		reportf("Attempt to use delete on block %s allocated malloc-style", e.info.Site)
	}
	length := int64(e.info.Len)
	delete(g.ptrs, e.info.Addr)
	g.reg.remove(idx)
	g.usage.release(length)
	return nil
}

// reportCorruptLocked walks the whole registry after a corruption was found
// to identify every other block whose canaries no longer verify, reporting
// each by its allocation-site name.
func (g *Guarded) reportCorruptLocked(found *Block) {
	g.reg.forEach(func(e *regEntry) {
		blk := e.blk
		if blk == nil || blk == found || blk.raw == nil {
			return
		}
		hdr := blk.raw[blk.off-headerSize : blk.off]
		if le.Uint32(hdr[0:]) != memTag1 || le.Uint32(hdr[12:]) != memTag2 ||
			le.Uint32(blk.raw[blk.off+blk.len:]) != memTag3 {
			reportBlockError(e.info.Site, "is also corrupt")
		}
	})
}

func (g *Guarded) EnumerateBlocks(fn func(BlockInfo)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reg.forEach(func(e *regEntry) { fn(e.info) })
}
