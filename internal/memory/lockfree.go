package memory

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Lockfree is the default backend. It keeps nothing but atomic usage
// counters: no registry, no canaries, no locking. Double frees and
// wrong-style frees are detected only on a best-effort basis, through the
// freed flag and kind recorded on the Block itself.
type Lockfree struct {
	usage usage
}

// NewLockfree returns a counter-only backend.
func NewLockfree() *Lockfree { return &Lockfree{} }

func (l *Lockfree) Name() string { return "lockfree" }

// SetLimit sets an optional byte budget; allocations beyond it fail with
// ErrOutOfMemory. Zero means unlimited.
func (l *Lockfree) SetLimit(limit int64) { l.usage.limit.Store(limit) }

func (l *Lockfree) InUse() int64  { return l.usage.inUse.Load() }
func (l *Lockfree) Peak() int64   { return l.usage.peak.Load() }
func (l *Lockfree) Blocks() int64 { return l.usage.blocks.Load() }

func (l *Lockfree) AllocRaw(size, align int, site string, kind AllocKind) (*Block, error) {
	align = checkAlignment(align)
	length := roundUp4(size)
	if !l.usage.reserve(int64(length)) {
		reportf("Alloc returns nil: len=%d in %s, total %d", length, site, l.InUse())
		return nil, errors.Wrapf(ErrOutOfMemory, "raw alloc of %d bytes at %s", length, site)
	}

	raw := make([]byte, length+align-1)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	off := int((uintptr(align) - base%uintptr(align)) % uintptr(align))

	return &Block{
		idx:  regNone,
		len:  length,
		off:  off,
		site: site,
		kind: kind,
		addr: base + uintptr(off),
		raw:  raw,
	}, nil
}

func (l *Lockfree) FreeRaw(b *Block, kind AllocKind) error {
	if leakDetectorHasRun.Load() {
		reportf("%s", freeAfterLeakDetectionMessage)
	}
	if b == nil {
		reportBlockError("free", "attempt to free nil block")
		return nil
	}
	if b.kind == KindNew && kind != KindNew {
		reportf("Attempt to use malloc-style free on block %s allocated new-style", b.site)
	}
	if !b.freed.CompareAndSwap(false, true) {
		reportBlockError(b.site, "double free")
		return errors.Errorf("memory: double free of block %s", b.site)
	}
	l.usage.release(int64(b.len))
	return nil
}

func (l *Lockfree) Register(size int, site string, kind AllocKind, addr uintptr) (*Block, error) {
	length := roundUp4(size)
	if !l.usage.reserve(int64(length)) {
		reportf("Alloc returns nil: len=%d in %s, total %d", length, site, l.InUse())
		return nil, errors.Wrapf(ErrOutOfMemory, "alloc of %d bytes at %s", length, site)
	}
	return &Block{idx: regNone, len: length, site: site, kind: kind, addr: addr}, nil
}

func (l *Lockfree) Release(addr uintptr, size int, kind AllocKind) error {
	l.usage.release(int64(roundUp4(size)))
	return nil
}

// EnumerateBlocks is a no-op: the lock-free backend keeps no per-block state.
func (l *Lockfree) EnumerateBlocks(fn func(BlockInfo)) {}
