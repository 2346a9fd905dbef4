package memory

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureFatal reroutes the process-abort hook into a recorded message for
// the duration of one test.
func captureFatal(t *testing.T) *[]string {
	t.Helper()
	var msgs []string
	prev := fatalf
	fatalf = func(format string, args ...interface{}) {
		msgs = append(msgs, fmt.Sprintf(format, args...))
	}
	t.Cleanup(func() { fatalf = prev })
	return &msgs
}

func TestBackendSwitchRequiresNoLiveBlocks(t *testing.T) {
	require.NoError(t, UseGuarded())
	t.Cleanup(func() { _ = UseLockfree() })

	var a Allocator
	b, err := Alloc(a, 16, 8, "test.switch")
	require.NoError(t, err)

	require.ErrorIs(t, Use(NewLockfree()), ErrInvalidState)
	assert.Equal(t, "guarded", Current().Name())

	Free(a, b)
	require.NoError(t, UseLockfree())
	assert.Equal(t, "lockfree", Current().Name())
}

func TestAllocatorZeroValueUsesCurrentBackend(t *testing.T) {
	var a Allocator
	assert.Same(t, Current(), a.Backend())

	g := NewGuarded()
	assert.Same(t, g, WithBackend(g).Backend())
}

func TestPackageCounters(t *testing.T) {
	require.NoError(t, UseGuarded())
	t.Cleanup(func() { _ = UseLockfree() })

	var a Allocator
	b, err := Alloc(a, 100, 8, "test.counters")
	require.NoError(t, err)

	assert.Equal(t, int64(100), InUse())
	assert.Equal(t, int64(1), BlocksInUse())
	assert.Equal(t, int64(100), Peak())

	Free(a, b)
	assert.Zero(t, InUse())
	assert.Zero(t, BlocksInUse())
}

func TestSizeSafeMultiply(t *testing.T) {
	tests := []struct {
		a, b uintptr
		want uintptr
		ok   bool
	}{
		{0, 0, 0, true},
		{0, ^uintptr(0), 0, true},
		{1, 1, 1, true},
		{1000, 8, 8000, true},
		{1 << 20, 1 << 20, 1 << 40, true},
		{^uintptr(0), 2, 0, false},
		{1 << 40, 1 << 40, 0, false},
		{^uintptr(0), ^uintptr(0), 0, false},
	}
	for _, tt := range tests {
		got, ok := sizeSafeMultiply(tt.a, tt.b)
		assert.Equalf(t, tt.ok, ok, "%d*%d", tt.a, tt.b)
		if tt.ok {
			assert.Equalf(t, tt.want, got, "%d*%d", tt.a, tt.b)
		}
	}
}

func TestRoundUp4(t *testing.T) {
	assert.Equal(t, 0, roundUp4(0))
	assert.Equal(t, 4, roundUp4(1))
	assert.Equal(t, 4, roundUp4(4))
	assert.Equal(t, 8, roundUp4(5))
	assert.Equal(t, 104, roundUp4(101))
}

func TestCheckAlignment(t *testing.T) {
	assert.Equal(t, minAlignment, checkAlignment(1), "small alignments upgrade to the minimum")
	assert.Equal(t, minAlignment, checkAlignment(4))
	assert.Equal(t, 64, checkAlignment(64))

	assert.Panics(t, func() { checkAlignment(3) })
	assert.Panics(t, func() { checkAlignment(0) })
	assert.Panics(t, func() { checkAlignment(maxAlignment) })
}

func TestMallocArrayOverflowAborts(t *testing.T) {
	_ = captureReports(t)
	fatal := captureFatal(t)
	a := WithBackend(NewLockfree())

	_, err := MallocArray(a, math.MaxInt, 16, "test.overflow")
	require.ErrorIs(t, err, ErrOverflow)
	require.Len(t, *fatal, 1)
	assert.Contains(t, (*fatal)[0], "overflow")
}

func TestMakeSliceOverflowAborts(t *testing.T) {
	_ = captureReports(t)
	fatal := captureFatal(t)
	a := WithBackend(NewLockfree())

	_, _, err := MakeSlice[int64](a, math.MaxInt, "test.overflow")
	require.ErrorIs(t, err, ErrOverflow)
	require.Len(t, *fatal, 1)
}

func TestMustMakeSliceAbortsOnLimit(t *testing.T) {
	_ = captureReports(t)
	fatal := captureFatal(t)

	l := NewLockfree()
	l.SetLimit(16)
	a := WithBackend(l)

	MustMakeSlice[byte](a, 1024, "test.mustslice")
	require.NotEmpty(t, *fatal)
}

func TestFailOnErrorPanics(t *testing.T) {
	_ = captureReports(t)
	SetFailOnError(true)
	t.Cleanup(func() { SetFailOnError(false) })

	l := NewLockfree()
	assert.Panics(t, func() { _ = l.FreeRaw(nil, KindMalloc) })
}

func TestLeakDetection(t *testing.T) {
	sink := captureReports(t)
	require.NoError(t, UseGuarded())
	t.Cleanup(func() {
		leakDetectorHasRun.Store(false)
		_ = UseLockfree()
	})

	var a Allocator
	leaked, err := Alloc(a, 128, 8, "test.leaked")
	require.NoError(t, err)

	assert.True(t, CheckLeaks())
	assert.True(t, sink.contains("Not freed memory blocks: 1"))
	assert.True(t, sink.contains("test.leaked len: 128"))

	// A free racing past the leak check is itself suspect.
	Free(a, leaked)
	assert.True(t, sink.contains("after the leak detector has run"))

	leakDetectorHasRun.Store(false)
	assert.False(t, CheckLeaks())
	leakDetectorHasRun.Store(false)
}

func TestInitLeakDetectionAbortsWhenAsked(t *testing.T) {
	_ = captureReports(t)
	fatal := captureFatal(t)
	require.NoError(t, UseGuarded())
	t.Cleanup(func() {
		leakDetectorHasRun.Store(false)
		_ = UseLockfree()
	})

	var a Allocator
	b, err := Alloc(a, 32, 8, "test.leakabort")
	require.NoError(t, err)

	check := InitLeakDetection(true)
	check()
	require.NotEmpty(t, *fatal)

	leakDetectorHasRun.Store(false)
	Free(a, b)
}

func TestAllocKindString(t *testing.T) {
	assert.Equal(t, "malloc", KindMalloc.String())
	assert.Equal(t, "new", KindNew.String())
}
