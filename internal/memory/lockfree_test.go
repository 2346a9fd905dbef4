package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLockfreeCounters(t *testing.T) {
	l := NewLockfree()

	b1, err := l.AllocRaw(100, 8, "test.counters", KindMalloc)
	require.NoError(t, err)
	b2, err := l.AllocRaw(50, 8, "test.counters", KindMalloc)
	require.NoError(t, err)

	assert.Equal(t, int64(152), l.InUse(), "both lengths rounded to 4 bytes")
	assert.Equal(t, int64(2), l.Blocks())

	require.NoError(t, l.FreeRaw(b1, KindMalloc))
	require.NoError(t, l.FreeRaw(b2, KindMalloc))
	assert.Zero(t, l.InUse())
	assert.Zero(t, l.Blocks())
	assert.Equal(t, int64(152), l.Peak())
}

func TestLockfreeDoubleFreeBestEffort(t *testing.T) {
	sink := captureReports(t)
	l := NewLockfree()

	b, err := l.AllocRaw(8, 8, "test.doublefree", KindMalloc)
	require.NoError(t, err)
	require.NoError(t, l.FreeRaw(b, KindMalloc))

	require.Error(t, l.FreeRaw(b, KindMalloc))
	assert.True(t, sink.contains("double free"))
	assert.Zero(t, l.InUse(), "the second free is not double-counted")
}

func TestLockfreeWrongStyleFree(t *testing.T) {
	sink := captureReports(t)
	l := NewLockfree()

	b, err := l.AllocRaw(8, 8, "test.wrongstyle", KindNew)
	require.NoError(t, err)
	require.NoError(t, l.FreeRaw(b, KindMalloc))
	assert.True(t, sink.contains("malloc-style free"))
}

func TestLockfreeLimit(t *testing.T) {
	sink := captureReports(t)
	l := NewLockfree()
	l.SetLimit(16)

	_, err := l.AllocRaw(32, 8, "test.limit", KindMalloc)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.True(t, sink.contains("Alloc returns nil"))
	assert.Zero(t, l.InUse())
}

func TestLockfreeRegisterRelease(t *testing.T) {
	l := NewLockfree()

	_, err := l.Register(10, "test.register", KindNew, uintptr(0x1000))
	require.NoError(t, err)
	assert.Equal(t, int64(12), l.InUse())
	assert.Equal(t, int64(1), l.Blocks())

	require.NoError(t, l.Release(uintptr(0x1000), 10, KindNew))
	assert.Zero(t, l.InUse())
	assert.Zero(t, l.Blocks())
}

func TestLockfreeConcurrentChurn(t *testing.T) {
	l := NewLockfree()

	const (
		workers       = 8
		roundsPerUnit = 200
		blockSize     = 64
	)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < roundsPerUnit; i++ {
				b, err := l.AllocRaw(blockSize, 8, "test.churn", KindMalloc)
				if err != nil {
					return err
				}
				b.Bytes()[0] = byte(i)
				if err := l.FreeRaw(b, KindMalloc); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Zero(t, l.InUse())
	assert.Zero(t, l.Blocks())
	assert.GreaterOrEqual(t, l.Peak(), int64(blockSize))
	assert.LessOrEqual(t, l.Peak(), int64(workers*blockSize))
}
