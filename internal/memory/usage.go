package memory

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// usage holds the live byte/block counters shared by both backends. The
// counters are padded to separate cache lines; they are hammered from every
// allocating goroutine and false sharing between them is measurable.
type usage struct {
	inUse  atomic.Int64
	_      cpu.CacheLinePad
	peak   atomic.Int64
	_      cpu.CacheLinePad
	blocks atomic.Int64
	_      cpu.CacheLinePad
	limit  atomic.Int64 // 0 means unlimited
}

// reserve accounts for an allocation of n bytes. It fails when a configured
// byte budget would be exceeded.
func (u *usage) reserve(n int64) bool {
	if limit := u.limit.Load(); limit > 0 && u.inUse.Load()+n > limit {
		return false
	}
	in := u.inUse.Add(n)
	u.blocks.Add(1)
	for {
		p := u.peak.Load()
		if in <= p || u.peak.CompareAndSwap(p, in) {
			return true
		}
	}
}

func (u *usage) release(n int64) {
	u.inUse.Add(-n)
	u.blocks.Add(-1)
}
