// Package memory implements the process-wide dual-mode allocator the
// container layer is built on.
//
// Two interchangeable backends exist: a lock-free backend that maintains
// nothing but atomic usage counters, and a guarded backend that additionally
// keeps a registry of every live block, brackets raw payloads with canary
// tags and can report leaks and corrupted or misused blocks by allocation
// site. The backend is selected once, before the first allocation; switching
// later fails with ErrInvalidState.
//
// Containers do not talk to the backend directly. They receive an Allocator
// value whose zero value delegates to the process-wide backend, so ordinary
// code needs no global state while tests can pin a private backend per
// instance.
package memory

import (
	"fmt"
	"math/bits"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// AllocKind distinguishes the two allocation styles. Mixing them up (freeing
// a KindNew block through the malloc-style path or vice versa) is a detected
// usage error in guarded mode.
type AllocKind uint8

const (
	// KindMalloc marks blocks obtained through Alloc/MakeSlice/MallocArray.
	KindMalloc AllocKind = iota
	// KindNew marks blocks obtained through New and released through Delete.
	KindNew
)

func (k AllocKind) String() string {
	if k == KindNew {
		return "new"
	}
	return "malloc"
}

var (
	// ErrInvalidState is returned by Use when a backend switch is attempted
	// while allocations are live.
	ErrInvalidState = errors.New("memory: backend switch after first allocation")
	// ErrOutOfMemory is returned when an allocation exceeds the configured
	// byte budget of the backend.
	ErrOutOfMemory = errors.New("memory: out of memory")
	// ErrOverflow is returned when count*elemSize overflows the native word.
	ErrOverflow = errors.New("memory: allocation size overflow")
)

const (
	// minAlignment is the conservative alignment every backend guarantees,
	// matching what the platform allocator guarantees for word-sized data.
	minAlignment = 8
	// maxAlignment bounds alignment requests; larger values make no sense
	// for in-memory containers.
	maxAlignment = 1024
)

// BlockInfo describes one live allocation for leak reports and diagnostics.
type BlockInfo struct {
	Site string
	Len  int
	Addr uintptr
	Kind AllocKind
}

// Backend is one global allocation strategy. All methods are safe for
// concurrent use.
type Backend interface {
	Name() string

	// AllocRaw returns a raw byte block of at least size bytes whose payload
	// is aligned to align. The size is rounded up to a 4-byte boundary so
	// that the low bits of recorded lengths can carry flags.
	AllocRaw(size, align int, site string, kind AllocKind) (*Block, error)
	// FreeRaw releases a block obtained from AllocRaw or MakeSlice. A nil
	// block is a reported no-op. Double frees, wrong-style frees and
	// corrupted blocks are reported without corrupting backend state.
	FreeRaw(b *Block, kind AllocKind) error

	// Register accounts for a typed allocation that lives on the Go heap.
	Register(size int, site string, kind AllocKind, addr uintptr) (*Block, error)
	// Release undoes Register given only the object address.
	Release(addr uintptr, size int, kind AllocKind) error

	InUse() int64
	Peak() int64
	Blocks() int64
	SetLimit(limit int64)
	EnumerateBlocks(fn func(BlockInfo))
}

// Block is the accounting record for one allocation. Raw blocks additionally
// own the byte payload; typed blocks only carry bookkeeping.
type Block struct {
	idx  int32
	gen  uint32
	len  int
	off  int // payload offset into raw
	site string
	kind AllocKind
	addr uintptr
	raw  []byte // nil for typed blocks

	// freed backs the lock-free backend's best-effort double-free check.
	freed atomic.Bool
}

// Bytes returns the usable payload of a raw block, nil for typed blocks.
func (b *Block) Bytes() []byte {
	if b.raw == nil {
		return nil
	}
	return b.raw[b.off : b.off+b.len]
}

// Len returns the rounded payload length in bytes.
func (b *Block) Len() int { return b.len }

// Site returns the human-readable allocation site name.
func (b *Block) Site() string { return b.site }

type backendHolder struct{ b Backend }

var current atomic.Pointer[backendHolder]

func init() {
	current.Store(&backendHolder{b: NewLockfree()})
}

// Current returns the process-wide backend.
func Current() Backend { return current.Load().b }

// Use switches the process-wide backend. The switch is only legal while no
// blocks are live and must happen before allocating goroutines start; the
// check and the switch are deliberately not atomic (startup-only operation).
func Use(b Backend) error {
	if Current().Blocks() != 0 {
		return ErrInvalidState
	}
	current.Store(&backendHolder{b: b})
	return nil
}

// UseGuarded switches to a fresh guarded backend.
func UseGuarded() error { return Use(NewGuarded()) }

// UseLockfree switches to a fresh lock-free backend.
func UseLockfree() error { return Use(NewLockfree()) }

// InUse returns the bytes currently allocated through the current backend.
func InUse() int64 { return Current().InUse() }

// Peak returns the high-water mark of InUse.
func Peak() int64 { return Current().Peak() }

// BlocksInUse returns the number of live blocks of the current backend.
func BlocksInUse() int64 { return Current().Blocks() }

// Allocator selects the backend a container allocates from. The zero value
// uses the process-wide backend.
type Allocator struct {
	backend Backend
}

// WithBackend pins an allocator to one backend instance, bypassing the
// process-wide selection.
func WithBackend(b Backend) Allocator { return Allocator{backend: b} }

// Backend resolves the backend this allocator delegates to.
func (a Allocator) Backend() Backend {
	if a.backend != nil {
		return a.backend
	}
	return Current()
}

// Alloc requests a raw byte block from the allocator's backend.
func Alloc(a Allocator, size, align int, site string) (*Block, error) {
	return a.Backend().AllocRaw(size, align, site, KindMalloc)
}

// Free releases a raw block. Freeing nil is a reported no-op.
func Free(a Allocator, b *Block) {
	// Misuse is reported by the backend; there is nothing a caller could
	// sensibly do with the error here.
	_ = a.Backend().FreeRaw(b, KindMalloc)
}

//-------------------------------------------------------------------------------------------------
// Error reporting

var errorCallback atomic.Pointer[func(string)]

// failOnError upgrades misuse reports to panics, the moral equivalent of the
// debug-build abort. Tests and debug binaries enable it.
var failOnError atomic.Bool

// SetErrorCallback replaces the sink for allocator diagnostics. The default
// sink logs through logrus.
func SetErrorCallback(fn func(msg string)) {
	if fn == nil {
		errorCallback.Store(nil)
		return
	}
	errorCallback.Store(&fn)
}

// SetFailOnError makes every reported usage error panic instead of merely
// being logged.
func SetFailOnError(enabled bool) { failOnError.Store(enabled) }

func reportf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if cb := errorCallback.Load(); cb != nil {
		(*cb)(msg)
	} else {
		log.Error(msg)
	}
	if failOnError.Load() {
		panic("memory: " + msg)
	}
}

func reportBlockError(site, problem string) {
	reportf("MemoryBlock %s: %s", site, problem)
}

// fatalf aborts the process. Overridable so tests can observe the abort
// without dying.
var fatalf = func(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}

//-------------------------------------------------------------------------------------------------
// Shared helpers

func isPow2(v int) bool { return v > 0 && v&(v-1) == 0 }

// roundUp4 rounds a length to a 4-byte boundary so the low two bits of
// recorded lengths stay available for flags.
func roundUp4(n int) int { return (n + 3) &^ 3 }

func checkAlignment(align int) int {
	if !isPow2(align) {
		panic(fmt.Sprintf("memory: alignment %d is not a power of two", align))
	}
	if align >= maxAlignment {
		panic(fmt.Sprintf("memory: alignment %d is too large", align))
	}
	if align < minAlignment {
		align = minAlignment
	}
	return align
}

// sizeSafeMultiply reports whether a*b fits into the native word size,
// returning the product. Checking whether both operands fit in a half word
// avoids a divide in the common case.
func sizeSafeMultiply(a, b uintptr) (uintptr, bool) {
	const highBits = ^uintptr(0) >> (bits.UintSize / 2) << (bits.UintSize / 2)
	result := a * b
	if result == 0 {
		return 0, a == 0 || b == 0
	}
	if highBits&(a|b) == 0 {
		return result, true
	}
	return result, result/b == a
}
