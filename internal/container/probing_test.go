package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeDeterministic(t *testing.T) {
	const hash = 0xdeadbeefcafe
	a := newProbe(hash)
	b := newProbe(hash)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.slot(1023), b.slot(1023))
		a.next()
		b.next()
	}
}

func TestProbeVisitsEverySlot(t *testing.T) {
	for _, total := range []uint64{1, 2, 8, 64, 1024} {
		mask := total - 1
		for _, hash := range []uint64{0, 1, 0xffffffffffffffff, 0x9e3779b97f4a7c15} {
			seen := make(map[uint64]bool, total)
			p := newProbe(hash)
			// The recurrence permutes the whole value space, so every slot
			// must appear within total steps once the perturb has drained.
			for i := uint64(0); i < 16*total+16 && uint64(len(seen)) < total; i++ {
				seen[p.slot(mask)] = true
				p.next()
			}
			require.Lenf(t, seen, int(total), "total=%d hash=%#x", total, hash)
		}
	}
}

func TestShuffledProbeSkipsFirstIndex(t *testing.T) {
	const hash = 0x12345678
	plain := newProbe(hash)
	plain.next()
	shuffled := newShuffledProbe(hash)
	for i := 0; i < 20; i++ {
		assert.Equal(t, plain.slot(255), shuffled.slot(255))
		plain.next()
		shuffled.next()
	}
}
