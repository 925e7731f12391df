package statemap

import (
	"fmt"
	"math/bits"
)

// DefaultLoadFactor is the occupancy ratio beyond which the map grows.
const DefaultLoadFactor = 0.75

// GrowthPolicy is the explicit, data-driven growth configuration: an
// ascending table of admissible bucket counts plus the load factor that
// triggers moving to the next entry. It is plain data so it can be tested
// and tuned independently of the map.
//
// Every size must be a power of two. The probe sequence relies on this to
// guarantee that a full probe cycle visits every bucket exactly once.
type GrowthPolicy struct {
	Sizes      []uint64
	LoadFactor float64
}

// DefaultGrowthPolicy returns the default policy: powers of two from 4 up
// to 1<<31 buckets, load factor 0.75. The top tier holds two billion
// buckets; explorations beyond that must shard across map instances.
func DefaultGrowthPolicy() GrowthPolicy {
	sizes := make([]uint64, 0, 30)
	for shift := 2; shift <= 31; shift++ {
		sizes = append(sizes, 1<<shift)
	}
	return GrowthPolicy{Sizes: sizes, LoadFactor: DefaultLoadFactor}
}

// validate checks the policy invariants: non-empty strictly ascending
// power-of-two sizes and a load factor in (0, 1].
func (p GrowthPolicy) validate() error {
	if len(p.Sizes) == 0 {
		return fmt.Errorf("growth table is empty")
	}
	var prev uint64
	for i, size := range p.Sizes {
		if size == 0 || bits.OnesCount64(size) != 1 {
			return fmt.Errorf("growth table entry %d (%d) is not a power of two", i, size)
		}
		// Bucket indices must fit the 32-bit occupancy tracker.
		if size > 1<<32 {
			return fmt.Errorf("growth table entry %d (%d) exceeds 1<<32 buckets", i, size)
		}
		if size <= prev {
			return fmt.Errorf("growth table entry %d (%d) is not strictly ascending", i, size)
		}
		prev = size
	}
	if p.LoadFactor <= 0 || p.LoadFactor > 1 {
		return fmt.Errorf("load factor %v outside (0, 1]", p.LoadFactor)
	}
	return nil
}

// initialCursor returns the index of the smallest table entry holding at
// least capacity buckets, or the last entry if capacity exceeds the table.
func (p GrowthPolicy) initialCursor(capacity uint64) int {
	for i, size := range p.Sizes {
		if size >= capacity {
			return i
		}
	}
	return len(p.Sizes) - 1
}

// shouldGrow reports whether inserting one more element would push the
// occupancy ratio above the load factor. Growth happens proactively, before
// the ratio is exceeded, so the load-factor invariant holds after every
// insertion.
func (p GrowthPolicy) shouldGrow(numberOfElements, numberOfBuckets uint64) bool {
	return float64(numberOfElements+1) > p.LoadFactor*float64(numberOfBuckets)
}
