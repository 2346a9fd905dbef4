package container

import "math/bits"

// The maximum load factor is loadFactorNum/loadFactorDen = 1/2: a table is
// never more than half occupied+removed before a resize is forced. Kept as
// integer math so slot counts never go through floats.
const (
	loadFactorNum = 1
	loadFactorDen = 2
)

func ceilDiv(x, y uint64) uint64 {
	return x/y + b2u(x%y != 0)
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func pow2Ceil(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len64(v-1)
}

// totalSlotsFor returns the smallest power-of-two slot count whose usable
// portion (total * load factor) covers minUsable.
func totalSlotsFor(minUsable int) int {
	if minUsable < 1 {
		minUsable = 1
	}
	return int(pow2Ceil(ceilDiv(uint64(minUsable)*loadFactorDen, loadFactorNum)))
}

// usableFromTotal returns how many of total slots may be occupied+removed
// before the table has to grow.
func usableFromTotal(total int) int {
	return total * loadFactorNum / loadFactorDen
}
