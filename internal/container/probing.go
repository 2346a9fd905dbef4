package container

// probe generates the sequence of candidate slot indices for a hash, using
// the recurrence CPython's dict probes with:
//
//	perturb >>= 5; current = 5*current + 1 + perturb
//
// It is very fast when the original hash value is good. Under collisions,
// progressively more bits of the hash feed into the sequence, and because
// the recurrence is a permutation generator over the full 64-bit space,
// every index of a power-of-two table is eventually produced. The sequence
// is deterministic and restartable: rebuilding a probe from the same hash
// replays the same indices.
type probe struct {
	current uint64
	perturb uint64
}

func newProbe(hash uint64) probe {
	return probe{current: hash, perturb: hash}
}

// newShuffledProbe runs one extra step before the first index is produced.
// Useful when the hash function concentrates its entropy in the high bits.
func newShuffledProbe(hash uint64) probe {
	p := newProbe(hash)
	p.next()
	return p
}

func (p *probe) next() {
	p.perturb >>= 5
	p.current = 5*p.current + 1 + p.perturb
}

// slot masks the current probe value into a valid index for a table of
// mask+1 (power of two) slots.
func (p *probe) slot(mask uint64) uint64 {
	return p.current & mask
}

// linearSteps is the number of consecutive indices visited per probe step.
// Values above 1 trade probe quality for cache locality.
const linearSteps = 1
